package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		input     string
		expect    time.Time
		frequency Frequency
	}{
		{input: "2024-03-15", expect: day(2024, 3, 15), frequency: Daily},
		{input: "2024-03", expect: day(2024, 3, 1), frequency: Monthly},
		{input: "2024-Q3", expect: day(2024, 7, 1), frequency: Quarterly},
		{input: "2021", expect: day(2021, 1, 1), frequency: Annual},
		{input: `"2024-01-02"`, expect: day(2024, 1, 2), frequency: Daily},
		{input: "2024-01-02T13:00:00Z", expect: day(2024, 1, 2), frequency: Daily},
	}

	for _, test := range cases {
		got, freq, err := ParsePeriod(test.input)
		require.NoError(t, err, test.input)
		require.Equal(t, test.expect, got, test.input)
		require.Equal(t, test.frequency, freq, test.input)
	}

	_, _, err := ParsePeriod("yesterday")
	require.Error(t, err)
	_, _, err = ParsePeriod("2024-Q5")
	require.Error(t, err)
}

func TestSortDedupe(t *testing.T) {
	s := Series{
		Observations: []Observation{
			{Date: day(2024, 1, 3), Value: decimal.RequireFromString("3.9")},
			{Date: day(2024, 1, 1), Value: decimal.RequireFromString("3.8")},
			{Date: day(2024, 1, 3), Value: decimal.RequireFromString("3.95")},
			{Date: day(2024, 1, 2), Value: decimal.RequireFromString("3.85")},
		},
	}
	s.Sort()

	require.Equal(t, []Row{
		{Date: "2024-01-01", Value: "3.8"},
		{Date: "2024-01-02", Value: "3.85"},
		{Date: "2024-01-03", Value: "3.95"},
	}, s.Rows())
}

func TestWindowAndStats(t *testing.T) {
	s := Series{
		Observations: []Observation{
			{Date: day(2024, 1, 1), Value: decimal.RequireFromString("4")},
			{Date: day(2024, 1, 2), Value: decimal.RequireFromString("2")},
			{Date: day(2024, 1, 3), Value: decimal.RequireFromString("3")},
			{Date: day(2024, 1, 4), Value: decimal.RequireFromString("5")},
		},
	}

	window := s.Window(Range{Start: day(2024, 1, 2), End: day(2024, 1, 3)})
	require.Equal(t, 2, window.Len())
	require.Equal(t, 4, s.Len())

	stats := s.Stats()
	require.Equal(t, 4, stats.Count)
	require.Equal(t, "2", stats.Min.String())
	require.Equal(t, "5", stats.Max.String())
	require.Equal(t, "3.5", stats.Mean.String())
	require.Equal(t, "1", stats.Change.String())

	latest, ok := s.Latest()
	require.True(t, ok)
	require.Equal(t, day(2024, 1, 4), latest.Date)

	require.Equal(t, Stats{}, Series{}.Stats())
}

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 5, 31, 15, 4, 0, 0, time.UTC)

	r, err := ParseRange(now, "", "", 30)
	require.NoError(t, err)
	require.Equal(t, "2024-05-01..2024-05-31", r.String())

	r, err = ParseRange(now, "2024-01-01", "2024-02-01", 30)
	require.NoError(t, err)
	require.Equal(t, "2024-01-01..2024-02-01", r.String())

	r, err = ParseRange(now, "", "2024-02-10", 9)
	require.NoError(t, err)
	require.Equal(t, "2024-02-01..2024-02-10", r.String())

	_, err = ParseRange(now, "2024-03-01", "2024-02-01", 30)
	require.Error(t, err)

	require.True(t, r.Contains(time.Date(2024, 2, 10, 23, 0, 0, 0, time.UTC)))
	require.False(t, r.Contains(day(2024, 2, 11)))
}
