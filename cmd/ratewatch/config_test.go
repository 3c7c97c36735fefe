package main

import (
	"context"
	"os"
	"path/filepath"
	"ratewatch-backend/lib/configutil"
	configlibsql "ratewatch-backend/lib/configutil/libsql"
	"ratewatch-backend/lib/sources/catalog"
	"ratewatch-backend/lib/sources/fred"
	"ratewatch-backend/services/refresher"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// committed defaults
		port: 9000,
		database: { file: "ratewatch.db" },
		sources: { order: ["ecb", "fred"] },
		refresh: { options: { spec: "0 13 * * 1-5" } },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		sources: { sources: { fred: { api_key: "local-key" } } },
	}`), 0644))

	cfg, err := configutil.ReadConfig[Config](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.port())
	require.True(t, cfg.hasDatabase())
	require.Equal(t, []string{"ecb", "fred"}, cfg.Sources.Order)
	require.Equal(t, "0 13 * * 1-5", cfg.Refresh.Options.Spec)
	require.Equal(t, "local-key", cfg.catalogConfig().Sources[fred.Name].ApiKey)
}

func TestCatalogConfigEnv(t *testing.T) {
	t.Setenv("FRED_API_KEY", "env-key")

	cfg := Config{}
	require.Equal(t, 8000, cfg.port())
	require.False(t, cfg.hasDatabase())
	require.Equal(t, "env-key", cfg.catalogConfig().Sources[fred.Name].ApiKey)

	cfg.Sources.Sources = map[string]catalog.SourceConfig{
		fred.Name: {ApiKey: "configured"},
	}
	require.Equal(t, "configured", cfg.catalogConfig().Sources[fred.Name].ApiKey)
	// the configured map is not modified
	cfg.Sources.Sources = map[string]catalog.SourceConfig{}
	cfg.catalogConfig()
	require.Empty(t, cfg.Sources.Sources)
}

func TestRunReturnsStartupErrors(t *testing.T) {
	ctx := context.Background()

	err := run(ctx, Config{Sources: catalog.Config{Order: []string{"boe"}}}, false)
	require.ErrorContains(t, err, "init sources")

	cfg := Config{
		Database: configlibsql.Struct{File: filepath.Join(t.TempDir(), "ratewatch.db")},
		Refresh:  RefreshConfig{Options: refresher.Options{Spec: "every minute"}},
	}
	err = run(ctx, cfg, false)
	require.ErrorContains(t, err, "init refresher")
}
