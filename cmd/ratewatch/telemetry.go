package main

import (
	"context"
	"log/slog"
	"ratewatch-backend/lib/telemetry"
	"time"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitJSONSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel := telemetry.SetupOrWarn(ctx, "ratewatch")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tel.Shutdown(shutdownCtx)
	}()
	telemetry.InstrumentPerfStats(ctx, 15*time.Second)
}
