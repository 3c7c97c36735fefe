package catalog

import (
	"fmt"
	"ratewatch-backend/lib/restyutil"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/sources/bundesbank"
	"ratewatch-backend/lib/sources/ecb"
	"ratewatch-backend/lib/sources/fred"
	"ratewatch-backend/lib/telemetry"
	"time"
)

// Auto is the name of the source that tries every enabled source in order.
const Auto = "auto"

// DefaultOrder is the fallback order of the built in sources.
var DefaultOrder = []string{bundesbank.Name, ecb.Name, fred.Name}

type SourceConfig struct {
	Disabled bool   `json:"disabled"`
	BaseUrl  string `json:"base_url"`
	Key      string `json:"key"`
	ApiKey   string `json:"api_key"`
}

type Config struct {
	TimeoutSeconds int                     `json:"timeout_seconds"`
	Order          []string                `json:"order"`
	Sources        map[string]SourceConfig `json:"sources"`

	Dump restyutil.Output `json:"-"`
}

// New builds a registry holding every enabled built in source and the
// "auto" fallback over them.
func New(config Config, tel telemetry.API) (*sources.Registry, error) {
	order := config.Order
	if len(order) == 0 {
		order = DefaultOrder
	}

	var chain []sources.Source
	registry := sources.NewRegistry()
	for _, name := range order {
		sourceConfig := config.Sources[name]
		if sourceConfig.Disabled {
			continue
		}
		opts := sources.ClientOptions{
			BaseUrl: sourceConfig.BaseUrl,
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
			Dump:    config.Dump,
		}

		var src sources.Source
		switch name {
		case bundesbank.Name:
			src = bundesbank.NewClient(bundesbank.Options{ClientOptions: opts, Key: sourceConfig.Key})
		case ecb.Name:
			src = ecb.NewClient(ecb.Options{ClientOptions: opts, Key: sourceConfig.Key})
		case fred.Name:
			src = fred.NewClient(fred.Options{ClientOptions: opts, SeriesId: sourceConfig.Key, ApiKey: sourceConfig.ApiKey})
		default:
			return nil, fmt.Errorf("%w %q in source order", sources.ErrUnknownSource, name)
		}
		registry.Register(src)
		chain = append(chain, src)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no rate sources enabled")
	}

	registry.Register(namedFallback{
		Fallback: sources.NewFallback(tel, chain...),
	})
	return registry, nil
}

type namedFallback struct {
	sources.Fallback
}

func (namedFallback) Name() string {
	return Auto
}
