package commands

import (
	"context"
	"fmt"
	"io"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/render"
	"ratewatch-backend/lib/series"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historySource *string
	historyDb     *string
	historyRuns   *int
	historyRange  rangeFlags
)

func init() {
	historySource = historyCmd.Flags().String("source", "", "Only show series stored from this source.")
	historyDb = historyCmd.Flags().String("db", "ratewatch.db", "The sqlite database to read from.")
	historyRuns = historyCmd.Flags().Int("runs", 10, "Number of recent fetch runs to show.")
	historyRange = addRangeFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--source <name>] [--db <path>] [--runs <n>]",
	Short: "Prints stored observations and the most recent fetch runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := historyRange.parse(chrono.NewStandardTime().Now())
		if err != nil {
			return err
		}
		store, closeDb, err := openStore(*historyDb)
		if err != nil {
			return err
		}
		defer closeDb()
		return printHistory(cmd.Context(), cmd.OutOrStdout(), store, *historySource, r, *historyRuns)
	},
}

func printHistory(ctx context.Context, w io.Writer, store ratestore.Store, source string, r series.Range, runs int) error {
	infos, err := store.ListSeries(ctx)
	if err != nil {
		return err
	}

	found := 0
	for _, info := range infos {
		if source != "" && !strings.EqualFold(info.Source, source) {
			continue
		}
		found++
		stored, err := store.Pull(ctx, info.Key, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%d stored, updated %s)\n", info.Key, info.Count, info.UpdatedAt.Format("2006-01-02 15:04"))
		if err := render.SeriesTable(w, stored, render.Table); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if found == 0 {
		fmt.Fprintln(w, "no stored series")
	}

	recent, err := store.Runs(ctx, runs)
	if err != nil {
		return err
	}
	t := render.NewTable(w)
	t.SetTitle("Recent runs")
	t.AppendHeader(table.Row{"Started", "Source", "Range", "Count", "Duration", "Error"})
	for _, run := range recent {
		t.AppendRow(table.Row{
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Source,
			run.Range.String(),
			run.Count,
			run.Duration().String(),
			run.Error,
		})
	}
	t.Render()
	return nil
}
