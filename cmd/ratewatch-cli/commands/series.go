package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/render"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/sources/catalog"
	"time"

	"github.com/spf13/cobra"
)

var (
	seriesSource *string
	seriesFormat *string
	seriesDb     *string
	seriesRange  rangeFlags
)

func init() {
	seriesSource = seriesCmd.Flags().String("source", catalog.Auto, "The source to fetch from: bundesbank, ecb, fred or auto.")
	seriesFormat = seriesCmd.Flags().String("format", string(render.Table), "Output format: table, csv, markdown or json.")
	seriesDb = seriesCmd.Flags().String("db", "", "Also store the series in this sqlite database.")
	seriesRange = addRangeFlags(seriesCmd)
	rootCmd.AddCommand(seriesCmd)
}

var seriesCmd = &cobra.Command{
	Use:   "series [--source <name>] [--start <date>] [--end <date>] [--days <n>] [--format <format>] [--db <path>]",
	Short: "Fetches the Euribor series and prints it as a date-indexed table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseTableFormat(*seriesFormat)
		if err != nil {
			return err
		}
		r, err := seriesRange.parse(chrono.NewStandardTime().Now())
		if err != nil {
			return err
		}
		registry, err := newRegistry()
		if err != nil {
			return err
		}
		src, err := registry.Lookup(*seriesSource)
		if err != nil {
			return err
		}

		var store *ratestore.Store
		if *seriesDb != "" {
			s, closeDb, err := openStore(*seriesDb)
			if err != nil {
				return err
			}
			defer closeDb()
			store = &s
		}

		result, err := fetchSeries(cmd.Context(), src, r, store)
		if err != nil {
			return err
		}
		return printSeries(cmd.OutOrStdout(), result, format)
	},
}

// fetchSeries fetches r from src and, when store is set, stores the result
// along with a record of the run.
func fetchSeries(ctx context.Context, src sources.Source, r series.Range, store *ratestore.Store) (series.Series, error) {
	started := time.Now()
	result, fetchErr := src.Fetch(ctx, r)
	if store == nil {
		return result, fetchErr
	}

	run := ratestore.Run{
		Source:     src.Name(),
		SeriesKey:  result.Key,
		Range:      r,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Count:      result.Len(),
	}
	if fetchErr == nil {
		if result.Source != "" {
			run.Source = result.Source
		}
		fetchErr = store.Push(ctx, result)
	}
	if fetchErr != nil {
		run.Count = 0
		run.Error = fetchErr.Error()
	}
	if _, err := store.RecordRun(ctx, run); err != nil {
		slog.Warn("failed to record run", "err", err)
	}
	return result, fetchErr
}

func printSeries(w io.Writer, result series.Series, format render.TableFormat) error {
	if err := render.SeriesTable(w, result, format); err != nil {
		return err
	}
	if format == render.Table {
		fmt.Fprintln(w)
		render.StatsTable(w, result)
	}
	return nil
}
