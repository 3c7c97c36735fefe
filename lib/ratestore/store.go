package ratestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"ratewatch-backend/lib/ratestore/db"
	"ratewatch-backend/lib/series"
	"time"

	"github.com/mazen160/go-random"
	"github.com/shopspring/decimal"
)

var ErrSeriesNotFound = errors.New("series not found")

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Push upserts the series and its observations in one transaction, an
// observation already stored for a date is overwritten.
func (s Store) Push(ctx context.Context, rates series.Series) error {
	if rates.Key == "" {
		return fmt.Errorf("push: series has no key")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.UpsertSeries(ctx, db.Series{
		Key:       rates.Key,
		Source:    rates.Source,
		Label:     rates.Label,
		Frequency: rates.Frequency.String(),
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("push %s: %w", rates.Key, err)
	}

	for _, o := range rates.Observations {
		err := txqry.UpsertObservation(ctx, db.Observation{
			SeriesKey: rates.Key,
			Date:      o.Date.Format(time.DateOnly),
			Value:     o.Value.String(),
		})
		if err != nil {
			return fmt.Errorf("push %s at %s: %w", rates.Key, o.Date.Format(time.DateOnly), err)
		}
	}
	return tx.Commit()
}

// Pull returns the stored observations of a series inside r.
func (s Store) Pull(ctx context.Context, key string, r series.Range) (series.Series, error) {
	info, err := s.qry.GetSeries(ctx, key)
	if db.IsNotFound(err) {
		return series.Series{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, key)
	}
	if err != nil {
		return series.Series{}, err
	}

	rows, err := s.qry.GetObservations(ctx, db.GetObservationsParams{
		SeriesKey: key,
		After:     r.StartString(),
		Before:    r.EndString(),
	})
	if err != nil {
		return series.Series{}, err
	}

	out := series.Series{
		Key:          info.Key,
		Label:        info.Label,
		Source:       info.Source,
		Frequency:    series.ParseFrequency(info.Frequency),
		Observations: make([]series.Observation, 0, len(rows)),
	}
	for _, row := range rows {
		date, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			slog.WarnContext(ctx, "skipping stored observation with bad date", "series", key, "date", row.Date, "err", err)
			continue
		}
		value, err := decimal.NewFromString(row.Value)
		if err != nil {
			slog.WarnContext(ctx, "skipping stored observation with bad value", "series", key, "value", row.Value, "err", err)
			continue
		}
		out.Observations = append(out.Observations, series.Observation{Date: date, Value: value})
	}
	return out, nil
}

type SeriesInfo struct {
	Key       string
	Source    string
	Label     string
	Frequency series.Frequency
	Count     int64
	UpdatedAt time.Time
}

func (s Store) ListSeries(ctx context.Context) ([]SeriesInfo, error) {
	rows, err := s.qry.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SeriesInfo, len(rows))
	for i, row := range rows {
		out[i] = SeriesInfo{
			Key:       row.Key,
			Source:    row.Source,
			Label:     row.Label,
			Frequency: series.ParseFrequency(row.Frequency),
			Count:     row.Count,
			UpdatedAt: time.Unix(row.UpdatedAt, 0),
		}
	}
	return out, nil
}

// Run is one fetch of a source, successful or not.
type Run struct {
	ID         string
	Source     string
	SeriesKey  string
	Range      series.Range
	StartedAt  time.Time
	FinishedAt time.Time
	Count      int
	// Error is empty for successful runs.
	Error string
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r Run) Failed() bool {
	return r.Error != ""
}

// RecordRun stores a run, a random id is assigned when it has none.
func (s Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		id, err := random.String(12)
		if err != nil {
			return Run{}, fmt.Errorf("generate run id: %w", err)
		}
		run.ID = id
	}
	err := s.qry.CreateFetchRun(ctx, db.FetchRun{
		ID:         run.ID,
		Source:     run.Source,
		SeriesKey:  run.SeriesKey,
		RangeStart: run.Range.StartString(),
		RangeEnd:   run.Range.EndString(),
		StartedAt:  run.StartedAt.Unix(),
		FinishedAt: run.FinishedAt.Unix(),
		Count:      int64(run.Count),
		Error:      run.Error,
	})
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Runs returns the most recent runs first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.qry.ListFetchRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	out := make([]Run, 0, len(rows))
	for _, row := range rows {
		start, _ := time.Parse(time.DateOnly, row.RangeStart)
		end, _ := time.Parse(time.DateOnly, row.RangeEnd)
		out = append(out, Run{
			ID:         row.ID,
			Source:     row.Source,
			SeriesKey:  row.SeriesKey,
			Range:      series.Range{Start: start, End: end},
			StartedAt:  time.Unix(row.StartedAt, 0),
			FinishedAt: time.Unix(row.FinishedAt, 0),
			Count:      int(row.Count),
			Error:      row.Error,
		})
	}
	return out, nil
}
