package refresher

import (
	"context"
	"errors"
	"fmt"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/sources/catalog"
	"ratewatch-backend/lib/telemetry"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/refresher")

// DefaultSpec runs after the 11:00 CET Euribor publication on weekdays.
const DefaultSpec = "0 12 * * 1-5"

type Options struct {
	Spec string `json:"spec"`
	// WindowDays is the trailing window fetched on every refresh.
	WindowDays int `json:"window_days"`
	// Sources are refreshed in order, every registered source when empty.
	Sources        []string `json:"sources"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

type Service struct {
	registry *sources.Registry
	store    ratestore.Store
	time     chrono.TimeAPI
	tel      telemetry.API
	opts     Options
}

func NewService(
	registry *sources.Registry,
	store ratestore.Store,
	timeAPI chrono.TimeAPI,
	tel telemetry.API,
	opts Options,
) (Service, error) {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 120
	}
	if err := chrono.ValidateSpec(opts.Spec); err != nil {
		return Service{}, fmt.Errorf("refresh spec %q: %w", opts.Spec, err)
	}
	for _, name := range opts.Sources {
		if _, err := registry.Lookup(name); err != nil {
			return Service{}, err
		}
	}

	return Service{
		registry: registry,
		store:    store,
		time:     timeAPI,
		tel:      telemetry.NewScopedAPI("refresher", tel),
		opts:     opts,
	}, nil
}

func (s Service) sourceNames() []string {
	if len(s.opts.Sources) > 0 {
		return s.opts.Sources
	}
	// the fallback would store a duplicate of whichever source answered
	var names []string
	for _, name := range s.registry.Names() {
		if name != catalog.Auto {
			names = append(names, name)
		}
	}
	return names
}

// Refresh fetches the trailing window of one source, stores it and records
// the run. The run is recorded even when the fetch fails.
func (s Service) Refresh(ctx context.Context, name string) (ratestore.Run, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("source", name))

	src, err := s.registry.Lookup(name)
	if err != nil {
		return ratestore.Run{}, err
	}

	run := ratestore.Run{
		Source:    src.Name(),
		Range:     series.LastDays(s.time.Now(), s.opts.WindowDays),
		StartedAt: s.time.Now(),
	}

	fetched, fetchErr := src.Fetch(ctx, run.Range)
	if fetchErr == nil {
		fetchErr = s.store.Push(ctx, fetched)
	}
	run.FinishedAt = s.time.Now()
	run.SeriesKey = fetched.Key
	run.Count = fetched.Len()
	if fetchErr != nil {
		run.Error = fetchErr.Error()
		run.Count = 0
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, fetchErr.Error())
	}

	recorded, err := s.store.RecordRun(ctx, run)
	if err != nil {
		s.tel.ReportBroken("record-run", name, err)
		recorded = run
	}
	if fetchErr != nil {
		return recorded, fmt.Errorf("refresh %s: %w", name, fetchErr)
	}
	s.tel.ReportCount(fmt.Sprintf("observations.%s", name), int64(run.Count))
	return recorded, nil
}

// RefreshAll refreshes every configured source, one failing source does
// not stop the others.
func (s Service) RefreshAll(ctx context.Context) ([]ratestore.Run, error) {
	ctx, span := tracer.Start(ctx, "RefreshAll")
	defer span.End()

	var runs []ratestore.Run
	var errs []error
	for _, name := range s.sourceNames() {
		run, err := s.Refresh(ctx, name)
		if err != nil {
			s.tel.ReportWarning("refresh", name, err)
			errs = append(errs, err)
		}
		if run.ID != "" {
			runs = append(runs, run)
		}
	}
	return runs, errors.Join(errs...)
}

// Start schedules RefreshAll on the configured cron spec.
func (s Service) Start(ctx context.Context, cron chrono.CronAPI) error {
	return cron.Cron(s.opts.Spec, func() {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, time.Duration(s.opts.TimeoutSeconds)*time.Second)
		defer cancel()

		s.tel.ReportDebug("scheduled refresh started")
		runs, err := s.RefreshAll(runCtx)
		if err != nil {
			s.tel.ReportWarning("scheduled", err)
		}
		s.tel.ReportDebug("scheduled refresh finished", len(runs))
	})
}

func (s Service) Spec() string {
	return s.opts.Spec
}
