package db

import (
	"context"
	"database/sql"
	"errors"
)

const upsertSeries = `
insert into series (key, source, label, frequency, updated_at)
values (?, ?, ?, ?, ?)
on conflict (key) do update set
    source = excluded.source,
    label = excluded.label,
    frequency = excluded.frequency,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertSeries(ctx context.Context, arg Series) error {
	_, err := q.db.ExecContext(ctx, upsertSeries,
		arg.Key,
		arg.Source,
		arg.Label,
		arg.Frequency,
		arg.UpdatedAt,
	)
	return err
}

const upsertObservation = `
insert into observation (series_key, date, value)
values (?, ?, ?)
on conflict (series_key, date) do update set value = excluded.value
`

func (q *Queries) UpsertObservation(ctx context.Context, arg Observation) error {
	_, err := q.db.ExecContext(ctx, upsertObservation, arg.SeriesKey, arg.Date, arg.Value)
	return err
}

const getSeries = `
select s.key, s.source, s.label, s.frequency, s.updated_at,
    (select count(*) from observation o where o.series_key = s.key)
from series s
where s.key = ?
`

// GetSeries returns sql.ErrNoRows for unknown keys.
func (q *Queries) GetSeries(ctx context.Context, key string) (Series, error) {
	row := q.db.QueryRowContext(ctx, getSeries, key)
	var s Series
	err := row.Scan(&s.Key, &s.Source, &s.Label, &s.Frequency, &s.UpdatedAt, &s.Count)
	return s, err
}

const listSeries = `
select s.key, s.source, s.label, s.frequency, s.updated_at,
    (select count(*) from observation o where o.series_key = s.key)
from series s
order by s.source, s.key
`

func (q *Queries) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := q.db.QueryContext(ctx, listSeries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Series
	for rows.Next() {
		var s Series
		err := rows.Scan(&s.Key, &s.Source, &s.Label, &s.Frequency, &s.UpdatedAt, &s.Count)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type GetObservationsParams struct {
	SeriesKey string
	After     string
	Before    string
}

const getObservations = `
select series_key, date, value from observation
where series_key = ? and date >= ? and date <= ?
order by date
`

func (q *Queries) GetObservations(ctx context.Context, arg GetObservationsParams) ([]Observation, error) {
	rows, err := q.db.QueryContext(ctx, getObservations, arg.SeriesKey, arg.After, arg.Before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.SeriesKey, &o.Date, &o.Value); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const createFetchRun = `
insert into fetch_run (id, source, series_key, range_start, range_end, started_at, finished_at, count, error)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateFetchRun(ctx context.Context, arg FetchRun) error {
	_, err := q.db.ExecContext(ctx, createFetchRun,
		arg.ID,
		arg.Source,
		arg.SeriesKey,
		arg.RangeStart,
		arg.RangeEnd,
		arg.StartedAt,
		arg.FinishedAt,
		arg.Count,
		arg.Error,
	)
	return err
}

const listFetchRuns = `
select id, source, series_key, range_start, range_end, started_at, finished_at, count, error
from fetch_run
order by started_at desc, id
limit ?
`

func (q *Queries) ListFetchRuns(ctx context.Context, limit int64) ([]FetchRun, error) {
	rows, err := q.db.QueryContext(ctx, listFetchRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FetchRun
	for rows.Next() {
		var r FetchRun
		err := rows.Scan(
			&r.ID,
			&r.Source,
			&r.SeriesKey,
			&r.RangeStart,
			&r.RangeEnd,
			&r.StartedAt,
			&r.FinishedAt,
			&r.Count,
			&r.Error,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// IsNotFound reports whether err is a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
