package render

import (
	"encoding/json"
	"fmt"
	"io"
	"ratewatch-backend/lib/series"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type TableFormat string

const (
	Table    TableFormat = "table"
	CSV      TableFormat = "csv"
	Markdown TableFormat = "markdown"
	JSON     TableFormat = "json"
)

func ParseTableFormat(s string) (TableFormat, error) {
	switch TableFormat(strings.ToLower(s)) {
	case Table, "":
		return Table, nil
	case CSV:
		return CSV, nil
	case Markdown, "md":
		return Markdown, nil
	case JSON:
		return JSON, nil
	}
	return "", fmt.Errorf("unknown output format %q, expected table, csv, markdown or json", s)
}

func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// SeriesTable writes the date-indexed table of a series.
func SeriesTable(w io.Writer, rates series.Series, format TableFormat) error {
	if format == JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Key       string       `json:"key"`
			Source    string       `json:"source"`
			Label     string       `json:"label"`
			Frequency string       `json:"frequency"`
			Rows      []series.Row `json:"rows"`
		}{
			Key:       rates.Key,
			Source:    rates.Source,
			Label:     rates.Label,
			Frequency: rates.Frequency.String(),
			Rows:      rates.Rows(),
		})
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Date", rates.Label})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	for _, row := range rates.Rows() {
		t.AppendRow(table.Row{row.Date, row.Value})
	}

	switch format {
	case CSV:
		t.RenderCSV()
	case Markdown:
		t.RenderMarkdown()
	default:
		t.SetCaption("%s, %s, %d observations", rates.Source, rates.Frequency, rates.Len())
		t.Render()
	}
	return nil
}

// StatsTable writes summary statistics of a series.
func StatsTable(w io.Writer, rates series.Series) {
	stats := rates.Stats()
	t := NewTable(w)
	t.AppendHeader(table.Row{"Count", "Min", "Max", "Mean", "First", "Last", "Change"})
	if stats.Count == 0 {
		t.AppendRow(table.Row{0, "-", "-", "-", "-", "-", "-"})
	} else {
		t.AppendRow(table.Row{
			stats.Count,
			stats.Min.String(),
			stats.Max.String(),
			stats.Mean.String(),
			stats.First.String(),
			stats.Last.String(),
			stats.Change.StringFixed(3),
		})
	}
	t.Render()
}
