package series

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EuriborLabel is the name every built in source gives to its value column.
const EuriborLabel = "Euribor 3M (%)"

type Frequency int

const (
	Unknown Frequency = iota
	Daily
	Monthly
	Quarterly
	Annual
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Annual:
		return "annual"
	}
	return "unknown"
}

// ParseFrequency is the inverse of Frequency.String.
func ParseFrequency(s string) Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "d":
		return Daily
	case "monthly", "m":
		return Monthly
	case "quarterly", "q":
		return Quarterly
	case "annual", "a":
		return Annual
	}
	return Unknown
}

type Observation struct {
	Date  time.Time
	Value decimal.Decimal
}

type Series struct {
	Key          string
	Label        string
	Source       string
	Frequency    Frequency
	Observations []Observation
}

// Row is a single line of the date-indexed table.
type Row struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Date truncates t to a calendar date in UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParsePeriod parses the period notations used by SDMX and FRED.
func ParsePeriod(s string) (time.Time, Frequency, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, Daily, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date(t), Daily, nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, Monthly, nil
	}
	if year, quarter, ok := strings.Cut(s, "-Q"); ok {
		y, yerr := strconv.Atoi(year)
		q, qerr := strconv.Atoi(quarter)
		if yerr == nil && qerr == nil && q >= 1 && q <= 4 {
			return time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC), Quarterly, nil
		}
	}
	if len(s) == 4 {
		if y, err := strconv.Atoi(s); err == nil {
			return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), Annual, nil
		}
	}
	return time.Time{}, Unknown, fmt.Errorf("unrecognized period %q", s)
}

// Sort orders observations by date and removes duplicate dates, the last
// value seen for a date wins.
func (s *Series) Sort() {
	slices.SortStableFunc(s.Observations, func(a, b Observation) int {
		return a.Date.Compare(b.Date)
	})

	out := s.Observations[:0]
	for _, o := range s.Observations {
		if len(out) > 0 && out[len(out)-1].Date.Equal(o.Date) {
			out[len(out)-1] = o
			continue
		}
		out = append(out, o)
	}
	s.Observations = out
}

// Window returns a copy of the series restricted to r.
func (s Series) Window(r Range) Series {
	out := s
	out.Observations = nil
	for _, o := range s.Observations {
		if r.Contains(o.Date) {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}

func (s Series) Latest() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

func (s Series) Len() int {
	return len(s.Observations)
}

// Rows renders the date-indexed table.
func (s Series) Rows() []Row {
	rows := make([]Row, len(s.Observations))
	for i, o := range s.Observations {
		rows[i] = Row{
			Date:  o.Date.Format("2006-01-02"),
			Value: o.Value.String(),
		}
	}
	return rows
}

// Floats splits the series into parallel slices, used for charting.
func (s Series) Floats() ([]time.Time, []float64) {
	dates := make([]time.Time, len(s.Observations))
	values := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		dates[i] = o.Date
		values[i] = o.Value.InexactFloat64()
	}
	return dates, values
}
