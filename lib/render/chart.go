package render

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"ratewatch-backend/lib/series"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrEmptySeries = errors.New("series has no observations")

type Format int

const (
	PNG Format = iota
	SVG
)

// FormatFromPath picks the chart format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".svg":
		return SVG, nil
	}
	return 0, fmt.Errorf("unsupported chart extension %q, expected .png or .svg", filepath.Ext(path))
}

func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

type ChartOptions struct {
	Width  int
	Height int
	Title  string
}

func lineStyle() chart.Style {
	return chart.Style{
		StrokeWidth: 2,
		StrokeColor: drawing.ColorFromHex("1f77b4"),
		DotWidth:    2,
		DotColor:    drawing.ColorFromHex("1f77b4"),
	}
}

// Chart draws the series as a line over time.
func Chart(w io.Writer, rates series.Series, format Format, opts ChartOptions) error {
	if rates.Len() == 0 {
		return ErrEmptySeries
	}
	if opts.Width == 0 {
		opts.Width = 960
	}
	if opts.Height == 0 {
		opts.Height = 400
	}
	if opts.Title == "" {
		opts.Title = fmt.Sprintf("%s (%s)", rates.Label, rates.Source)
	}

	xs, ys := rates.Floats()
	// a single point has an empty x range, which go-chart cannot draw
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[0])
	}

	stats := rates.Stats()
	minY := stats.Min.InexactFloat64()
	maxY := stats.Max.InexactFloat64()
	pad := (maxY - minY) * 0.1
	if pad == 0 {
		pad = 0.05
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  rates.Label,
			Range: &chart.ContinuousRange{Min: minY - pad, Max: maxY + pad},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.3f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    rates.Label,
				XValues: xs,
				YValues: ys,
				Style:   lineStyle(),
			},
		},
	}

	renderer := chart.PNG
	if format == SVG {
		renderer = chart.SVG
	}
	if err := ch.Render(renderer, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
