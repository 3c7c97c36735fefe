package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/configutil"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/ratestore/db"
	"ratewatch-backend/lib/restyutil"
	"ratewatch-backend/lib/serviceutil"
	"ratewatch-backend/lib/sources/catalog"
	"ratewatch-backend/lib/telemetry"
	"ratewatch-backend/lib/webpage"
	"ratewatch-backend/services/dashboard"
	"ratewatch-backend/services/refresher"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging and dump raw http messages to .dev/resty.")
	configPath := flag.String("config", "config.json5", "The config file, searched for upwards from the cwd.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	if err := configutil.LoadEnv(); err != nil {
		serviceutil.Fatal("load .env", err)
	}
	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadRecursively[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	// run returns only after its deferred cleanups, so the browser and the
	// database are closed before the process exits.
	if err := run(ctx, cfg, *verbose); err != nil {
		serviceutil.Fatal("ratewatch", err)
	}
}

func run(ctx context.Context, cfg Config, verbose bool) error {
	tel := telemetry.SlogAPI{}
	timeAPI := chrono.NewStandardTime()

	catalogConfig := cfg.catalogConfig()
	if verbose {
		catalogConfig.Dump = dumpOutput(".dev/resty/sources")
	}
	registry, err := catalog.New(catalogConfig, tel)
	if err != nil {
		return fmt.Errorf("init sources: %w", err)
	}

	httpOptions := cfg.httpOptions()
	if verbose {
		httpOptions.Dump = dumpOutput(".dev/resty/pages")
	}
	deps := dashboard.Dependencies{
		Registry: registry,
		Fetcher:  webpage.NewHTTPFetcher(httpOptions),
		Time:     timeAPI,
		Tel:      tel,
	}
	if cfg.Browser.Enabled {
		browser := webpage.NewBrowserFetcher(cfg.browserOptions(), tel)
		defer func() {
			if err := browser.Close(); err != nil {
				slog.Warn("failed to close browser", "err", err)
			}
		}()
		deps.Browser = browser
	}

	if cfg.hasDatabase() {
		database, err := cfg.Database.OpenDB(db.Schema)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()
		store := ratestore.NewStore(database)
		deps.Store = &store

		if !cfg.Refresh.Disabled {
			refresh, err := refresher.NewService(registry, store, timeAPI, tel, cfg.Refresh.Options)
			if err != nil {
				return fmt.Errorf("init refresher: %w", err)
			}
			err = startRefresher(ctx, refresh, cfg.Refresh.RunOnStart, tel)
			if err != nil {
				return fmt.Errorf("schedule refresh: %w", err)
			}
			deps.Refresher = refresh
		}
	} else {
		slog.Warn("no database configured, scheduled refresh is disabled")
	}

	svc := dashboard.NewService(deps, cfg.Dashboard)
	err = serviceutil.StartHttpServer(ctx, cfg.port(), "ratewatch", svc.Handler())
	if err != nil {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func startRefresher(ctx context.Context, refresh refresher.Service, runOnStart bool, tel telemetry.API) error {
	cron := chrono.NewStandardCron(tel)
	go func() {
		<-ctx.Done()
		<-cron.Stop().Done()
	}()

	err := refresh.Start(ctx, cron)
	if err != nil {
		return err
	}
	slog.Info("scheduled refresh", "spec", refresh.Spec())

	if !runOnStart {
		return nil
	}
	go func() {
		runs, err := refresh.RefreshAll(ctx)
		if err != nil {
			slog.Warn("initial refresh failed", "err", err)
			return
		}
		slog.Info("initial refresh finished", "runs", len(runs))
	}()
	return nil
}

func dumpOutput(dir string) restyutil.Output {
	out, err := restyutil.NewFilesystemOutput(dir)
	if err != nil {
		slog.Warn("failed to create http dump directory", "dir", dir, "err", err)
		return nil
	}
	return out
}
