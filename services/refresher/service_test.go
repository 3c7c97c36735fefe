package refresher

import (
	"context"
	"errors"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/ratestore/db"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/telemetry"
	"ratewatch-backend/lib/testutil"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	err  error
	got  series.Range
}

func (s *stubSource) Name() string {
	return s.name
}

func (s *stubSource) Fetch(ctx context.Context, r series.Range) (series.Series, error) {
	s.got = r
	if s.err != nil {
		return series.Series{}, s.err
	}
	return series.Series{
		Key:       s.name + ".key",
		Label:     series.EuriborLabel,
		Source:    s.name,
		Frequency: series.Daily,
		Observations: []series.Observation{
			{Date: r.End.AddDate(0, 0, -1), Value: decimal.RequireFromString("3.902")},
			{Date: r.End, Value: decimal.RequireFromString("3.893")},
		},
	}, nil
}

type manualCron struct {
	specs     []string
	callbacks []func()
}

func (c *manualCron) Cron(spec string, callback func()) error {
	c.specs = append(c.specs, spec)
	c.callbacks = append(c.callbacks, callback)
	return nil
}

func setup(t *testing.T, srcs ...sources.Source) (Service, ratestore.Store, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "refresher",
		DbSchema: db.Schema,
	})
	store := ratestore.NewStore(res.DB)
	now := chrono.FixedTime{At: time.Date(2024, 2, 5, 11, 0, 0, 0, time.UTC)}

	service, err := NewService(sources.NewRegistry(srcs...), store, now, telemetry.SlogAPI{}, Options{WindowDays: 7})
	require.NoError(t, err)
	return service, store, cleanup
}

func TestRefreshAll(t *testing.T) {
	good := &stubSource{name: "ecb"}
	bad := &stubSource{name: "bundesbank", err: errors.New("upstream 503")}
	service, store, cleanup := setup(t, bad, good)
	defer cleanup()

	ctx := context.Background()
	runs, err := service.RefreshAll(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "upstream 503")
	require.Len(t, runs, 2)

	require.Equal(t, "2024-01-29", good.got.StartString())
	require.Equal(t, "2024-02-05", good.got.EndString())

	require.True(t, runs[0].Failed())
	require.False(t, runs[1].Failed())
	require.Equal(t, 2, runs[1].Count)
	require.Equal(t, "ecb.key", runs[1].SeriesKey)

	stored, err := store.Pull(ctx, "ecb.key", good.got)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Len())

	recorded, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
}

func TestStart(t *testing.T) {
	good := &stubSource{name: "fred"}
	service, store, cleanup := setup(t, good)
	defer cleanup()

	cron := &manualCron{}
	require.NoError(t, service.Start(context.Background(), cron))
	require.Equal(t, []string{DefaultSpec}, cron.specs)

	cron.callbacks[0]()
	runs, err := store.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "fred", runs[0].Source)
}

func TestNewServiceValidates(t *testing.T) {
	registry := sources.NewRegistry(&stubSource{name: "ecb"})
	now := chrono.FixedTime{At: time.Now()}

	_, err := NewService(registry, ratestore.Store{}, now, telemetry.SlogAPI{}, Options{Spec: "every tuesday"})
	require.Error(t, err)

	_, err = NewService(registry, ratestore.Store{}, now, telemetry.SlogAPI{}, Options{Sources: []string{"boe"}})
	require.ErrorIs(t, err, sources.ErrUnknownSource)
}
