package main

import (
	"ratewatch-backend/lib/configutil"
	configlibsql "ratewatch-backend/lib/configutil/libsql"
	"ratewatch-backend/lib/sources/catalog"
	"ratewatch-backend/lib/sources/fred"
	"ratewatch-backend/lib/webpage"
	"ratewatch-backend/services/dashboard"
	"ratewatch-backend/services/refresher"
	"time"
)

type RefreshConfig struct {
	Disabled bool `json:"disabled"`
	// RunOnStart triggers a refresh as soon as the daemon is up.
	RunOnStart bool              `json:"run_on_start"`
	Options    refresher.Options `json:"options"`
}

type PagesConfig struct {
	TimeoutSeconds   int  `json:"timeout_seconds"`
	CloudflareBypass bool `json:"cloudflare_bypass"`
}

type BrowserConfig struct {
	Enabled        bool   `json:"enabled"`
	ControlUrl     string `json:"control_url"`
	Bin            string `json:"bin"`
	Headful        bool   `json:"headful"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type Config struct {
	Port      int                 `json:"port"`
	Database  configlibsql.Struct `json:"database"`
	Sources   catalog.Config      `json:"sources"`
	Refresh   RefreshConfig       `json:"refresh"`
	Dashboard dashboard.Options   `json:"dashboard"`
	Pages     PagesConfig         `json:"pages"`
	Browser   BrowserConfig       `json:"browser"`
}

func (c Config) port() int {
	if c.Port <= 0 {
		return 8000
	}
	return c.Port
}

func (c Config) hasDatabase() bool {
	return c.Database.File != "" || c.Database.Url != ""
}

// catalogConfig fills in api keys that only live in the environment.
func (c Config) catalogConfig() catalog.Config {
	out := c.Sources
	sources := make(map[string]catalog.SourceConfig, len(c.Sources.Sources)+1)
	for name, source := range c.Sources.Sources {
		sources[name] = source
	}
	fredConfig := sources[fred.Name]
	if fredConfig.ApiKey == "" {
		fredConfig.ApiKey = configutil.Env("FRED_API_KEY", "")
	}
	sources[fred.Name] = fredConfig
	out.Sources = sources
	return out
}

func (c Config) httpOptions() webpage.HTTPOptions {
	return webpage.HTTPOptions{
		Timeout:          time.Duration(c.Pages.TimeoutSeconds) * time.Second,
		CloudflareBypass: c.Pages.CloudflareBypass,
	}
}

func (c Config) browserOptions() webpage.BrowserOptions {
	return webpage.BrowserOptions{
		ControlURL: c.Browser.ControlUrl,
		Bin:        c.Browser.Bin,
		Headless:   !c.Browser.Headful,
		Timeout:    time.Duration(c.Browser.TimeoutSeconds) * time.Second,
	}
}
