package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"ratewatch-backend/lib/configutil"
	configlibsql "ratewatch-backend/lib/configutil/libsql"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/ratestore/db"
	"ratewatch-backend/lib/restyutil"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/sources/catalog"
	"ratewatch-backend/lib/sources/fred"
	"ratewatch-backend/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

// Config is the part of the daemon's config.json5 the cli understands.
type Config struct {
	Sources catalog.Config `json:"sources"`
}

var (
	debug   *bool
	dumpDir *string
)

var rootCmd = &cobra.Command{
	Use:   "ratewatch-cli",
	Short: "ratewatch-cli fetches, stores and plots the 3-month Euribor rate.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
	},
	SilenceUsage: true,
}

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", "", "Write raw http requests and responses to this directory.")
}

// ExecuteContext runs the command line, the error has already been printed.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

func dumpOutput(sub string) restyutil.Output {
	if *dumpDir == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(fmt.Sprintf("%s/%s", *dumpDir, sub))
	if err != nil {
		slog.Warn("failed to create dump directory", "err", err)
		return nil
	}
	return out
}

func readConfig() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config]("config.json5")
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config.json5 found, using built in sources")
		return Config{}, nil
	}
	return cfg, err
}

func newRegistry() (*sources.Registry, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	catalogConfig := cfg.Sources
	if key := configutil.Env("FRED_API_KEY", ""); key != "" {
		if catalogConfig.Sources == nil {
			catalogConfig.Sources = map[string]catalog.SourceConfig{}
		}
		fredConfig := catalogConfig.Sources[fred.Name]
		if fredConfig.ApiKey == "" {
			fredConfig.ApiKey = key
			catalogConfig.Sources[fred.Name] = fredConfig
		}
	}
	catalogConfig.Dump = dumpOutput("sources")
	return catalog.New(catalogConfig, telemetry.SlogAPI{})
}

func openStore(path string) (ratestore.Store, func(), error) {
	database, err := configlibsql.Struct{File: path}.OpenDB(db.Schema)
	if err != nil {
		return ratestore.Store{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return ratestore.NewStore(database), func() { database.Close() }, nil
}

type rangeFlags struct {
	start *string
	end   *string
	days  *int
}

func addRangeFlags(cmd *cobra.Command) rangeFlags {
	return rangeFlags{
		start: cmd.Flags().String("start", "", "First date (YYYY-MM-DD), defaults to --days before the end."),
		end:   cmd.Flags().String("end", "", "Last date (YYYY-MM-DD), defaults to today."),
		days:  cmd.Flags().Int("days", 30, "Size of the window when --start is not given."),
	}
}

func (f rangeFlags) parse(now time.Time) (series.Range, error) {
	if *f.days <= 0 {
		return series.Range{}, fmt.Errorf("--days must be positive")
	}
	return series.ParseRange(now, *f.start, *f.end, *f.days)
}
