package ratestore

import (
	"context"
	"ratewatch-backend/lib/ratestore/db"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/testutil"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func obs(t time.Time, v string) series.Observation {
	return series.Observation{Date: t, Value: decimal.RequireFromString(v)}
}

func TestStore(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "ratestore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	window := series.Range{Start: date(2024, 1, 1), End: date(2024, 1, 31)}
	{
		_, err := store.Pull(ctx, "BBIG1.D", window)
		require.ErrorIs(t, err, ErrSeriesNotFound)
	}
	{
		err := store.Push(ctx, series.Series{
			Key:       "BBIG1.D",
			Label:     series.EuriborLabel,
			Source:    "bundesbank",
			Frequency: series.Daily,
			Observations: []series.Observation{
				obs(date(2024, 1, 30), "3.915"),
				obs(date(2024, 1, 31), "3.9"),
				obs(date(2024, 2, 1), "3.893"),
			},
		})
		require.NoError(t, err)

		// overlapping push overwrites, the published value was revised
		err = store.Push(ctx, series.Series{
			Key:          "BBIG1.D",
			Label:        series.EuriborLabel,
			Source:       "bundesbank",
			Frequency:    series.Daily,
			Observations: []series.Observation{obs(date(2024, 1, 31), "3.902")},
		})
		require.NoError(t, err)
	}
	{
		pulled, err := store.Pull(ctx, "BBIG1.D", window)
		require.NoError(t, err)
		expected := series.Series{
			Key:       "BBIG1.D",
			Label:     series.EuriborLabel,
			Source:    "bundesbank",
			Frequency: series.Daily,
			Observations: []series.Observation{
				obs(date(2024, 1, 30), "3.915"),
				obs(date(2024, 1, 31), "3.902"),
			},
		}
		diff := cmp.Diff(expected, pulled, cmp.Comparer(func(a, b decimal.Decimal) bool {
			return a.Equal(b)
		}))
		require.Empty(t, diff)
	}
	{
		infos, err := store.ListSeries(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		require.Equal(t, int64(3), infos[0].Count)
		require.Equal(t, series.Daily, infos[0].Frequency)
	}

	require.Error(t, store.Push(ctx, series.Series{}))
}

func TestRuns(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "ratestore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)
	ctx := context.Background()

	started := time.Date(2024, 2, 5, 11, 0, 0, 0, time.UTC)
	window := series.Range{Start: date(2024, 1, 6), End: date(2024, 2, 5)}

	first, err := store.RecordRun(ctx, Run{
		Source:     "ecb",
		SeriesKey:  "FM.M",
		Range:      window,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Count:      2,
	})
	require.NoError(t, err)
	require.Len(t, first.ID, 12)

	_, err = store.RecordRun(ctx, Run{
		ID:         "failed-run",
		Source:     "bundesbank",
		Range:      window,
		StartedAt:  started.Add(time.Hour),
		FinishedAt: started.Add(time.Hour + time.Second),
		Error:      "bundesbank: unexpected status 503",
	})
	require.NoError(t, err)

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, "failed-run", runs[0].ID)
	require.True(t, runs[0].Failed())
	require.Equal(t, first.ID, runs[1].ID)
	require.False(t, runs[1].Failed())
	require.Equal(t, 2*time.Second, runs[1].Duration())
	require.Equal(t, window, runs[1].Range)

	limited, err := store.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
