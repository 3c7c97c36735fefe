package sdmx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"ratewatch-backend/lib/series"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrHeaderNotFound = errors.New("header line not found")
	ErrColumnNotFound = errors.New("column not found")
	ErrNoObservations = errors.New("no observations")
)

const (
	TimePeriod = "TIME_PERIOD"
	ObsValue   = "OBS_VALUE"
)

type CSVOptions struct {
	// DateColumns are the accepted names of the date column, TIME_PERIOD if empty.
	DateColumns []string
	// ValueColumns are the accepted names of the value column, OBS_VALUE if empty.
	// when none match, the column right after the date column is used.
	ValueColumns []string
	// Label is the name the value column is renamed to.
	Label string
}

func (o CSVOptions) dateColumns() []string {
	if len(o.DateColumns) == 0 {
		return []string{TimePeriod}
	}
	return o.DateColumns
}

func (o CSVOptions) valueColumns() []string {
	if len(o.ValueColumns) == 0 {
		return []string{ObsValue}
	}
	return o.ValueColumns
}

// missing value markers used by Bundesbank, ECB and FRED
var missingMarkers = []string{"", ".", "-", "NaN", "nan", "NA", "#N/A"}

func cleanField(f string) string {
	return strings.Trim(strings.TrimSpace(f), `"`)
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// DetectSeparator returns ';' if the header line contains one, ',' otherwise.
func DetectSeparator(header string) rune {
	if strings.Contains(header, ";") {
		return ';'
	}
	return ','
}

func headerFields(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ';' || r == ','
	})
	for i, f := range fields {
		fields[i] = cleanField(f)
	}
	return fields
}

// FindHeader returns the index of the header line: the first line starting
// with one of the date columns, or failing that the first line containing
// one as any field.
func FindHeader(lines []string, dateColumns []string) (int, error) {
	for i, l := range lines {
		fields := headerFields(l)
		if len(fields) > 0 && slices.Contains(dateColumns, fields[0]) {
			return i, nil
		}
	}
	for i, l := range lines {
		for _, f := range headerFields(l) {
			if slices.Contains(dateColumns, f) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: expected one of %v", ErrHeaderNotFound, dateColumns)
}

func parseValue(raw string, sep rune) (decimal.Decimal, bool, error) {
	raw = cleanField(raw)
	if slices.Contains(missingMarkers, raw) {
		return decimal.Decimal{}, false, nil
	}
	if sep == ';' && strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	return v, true, nil
}

// ParseCSV locates the header line in a semi-structured CSV text, detects
// its separator and reshapes the rows into a series with the date column
// renamed to Date and the value column renamed to opts.Label.
func ParseCSV(text string, opts CSVOptions) (series.Series, error) {
	lines := splitLines(text)
	headerIdx, err := FindHeader(lines, opts.dateColumns())
	if err != nil {
		return series.Series{}, err
	}
	sep := DetectSeparator(lines[headerIdx])

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	reader.Comma = sep
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return series.Series{}, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = cleanField(h)
	}

	dateIdx := slices.IndexFunc(header, func(h string) bool {
		return slices.Contains(opts.dateColumns(), h)
	})
	valueIdx := slices.IndexFunc(header, func(h string) bool {
		return slices.Contains(opts.valueColumns(), h)
	})
	if valueIdx < 0 && dateIdx+1 < len(header) {
		valueIdx = dateIdx + 1
	}
	if valueIdx < 0 {
		return series.Series{}, fmt.Errorf("%w: expected one of %v in %v", ErrColumnNotFound, opts.valueColumns(), header)
	}

	out := series.Series{Label: opts.Label}
	if out.Label == "" {
		out.Label = header[valueIdx]
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return series.Series{}, fmt.Errorf("read line %d: %w", headerIdx+line, err)
		}
		if len(record) <= dateIdx || len(record) <= valueIdx {
			continue
		}

		date, freq, err := series.ParsePeriod(record[dateIdx])
		if err != nil {
			// trailing notes and footers
			continue
		}
		value, ok, err := parseValue(record[valueIdx], sep)
		if err != nil {
			return series.Series{}, fmt.Errorf("line %d: parse value %q: %w", headerIdx+line, record[valueIdx], err)
		}
		if !ok {
			continue
		}
		if out.Frequency == series.Unknown {
			out.Frequency = freq
		}
		out.Observations = append(out.Observations, series.Observation{
			Date:  date,
			Value: value,
		})
	}

	if len(out.Observations) == 0 {
		return series.Series{}, ErrNoObservations
	}
	out.Sort()
	return out, nil
}
