package commands

import (
	"fmt"
	"log/slog"
	"os"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/render"
	"ratewatch-backend/lib/sources/catalog"

	"github.com/spf13/cobra"
)

var (
	chartSource *string
	chartOut    *string
	chartWidth  *int
	chartHeight *int
	chartRange  rangeFlags
)

func init() {
	chartSource = chartCmd.Flags().String("source", catalog.Auto, "The source to fetch from: bundesbank, ecb, fred or auto.")
	chartOut = chartCmd.Flags().String("out", "euribor.png", "The output file, .png or .svg.")
	chartWidth = chartCmd.Flags().Int("width", 0, "Width of the chart in pixels.")
	chartHeight = chartCmd.Flags().Int("height", 0, "Height of the chart in pixels.")
	chartRange = addRangeFlags(chartCmd)
	rootCmd.AddCommand(chartCmd)
}

var chartCmd = &cobra.Command{
	Use:   "chart [--source <name>] [--out <file.png|file.svg>]",
	Short: "Renders the Euribor series as a line chart.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.FormatFromPath(*chartOut)
		if err != nil {
			return err
		}
		r, err := chartRange.parse(chrono.NewStandardTime().Now())
		if err != nil {
			return err
		}
		registry, err := newRegistry()
		if err != nil {
			return err
		}
		src, err := registry.Lookup(*chartSource)
		if err != nil {
			return err
		}
		result, err := src.Fetch(cmd.Context(), r)
		if err != nil {
			return err
		}

		f, err := os.Create(*chartOut)
		if err != nil {
			return err
		}
		defer f.Close()
		err = render.Chart(f, result, format, render.ChartOptions{
			Width:  *chartWidth,
			Height: *chartHeight,
			Title:  fmt.Sprintf("%s, %s", result.Label, result.Source),
		})
		if err != nil {
			return err
		}
		slog.Info("wrote chart", "path", *chartOut, "observations", result.Len())
		return nil
	},
}
