package main

import (
	"context"
	"log/slog"
	"os"
	"ratewatch-backend/cmd/ratewatch-cli/commands"
	"ratewatch-backend/lib/configutil"
	"ratewatch-backend/lib/telemetry"
)

func main() {
	if err := configutil.LoadEnv(); err != nil {
		slog.Warn("failed to load .env", "err", err)
	}
	ctx := context.Background()
	tel := telemetry.SetupOrWarn(ctx, "ratewatch-cli")
	err := commands.ExecuteContext(ctx)
	tel.Shutdown(ctx)
	if err != nil {
		os.Exit(1)
	}
}
