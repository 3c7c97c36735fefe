package sources

import (
	"context"
	"errors"
	"fmt"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/telemetry"
	"slices"
	"sort"
	"strings"
)

var ErrUnknownSource = errors.New("unknown source")

// Source fetches a rate series for a date range.
type Source interface {
	Name() string
	Fetch(ctx context.Context, r series.Range) (series.Series, error)
}

// StatusError is returned when an api answers with a non-2xx status.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Source, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.Code, body)
}

// Registry is a set of sources addressed by name.
type Registry struct {
	sources map[string]Source
	order   []string
}

func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{sources: map[string]Source{}}
	for _, s := range srcs {
		r.Register(s)
	}
	return r
}

// Register adds a source, replacing any source registered under the same name.
func (r *Registry) Register(s Source) {
	name := strings.ToLower(s.Name())
	if _, exists := r.sources[name]; !exists {
		r.order = append(r.order, name)
	}
	r.sources[name] = s
}

func (r *Registry) Lookup(name string) (Source, error) {
	s, ok := r.sources[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		known := slices.Clone(r.order)
		sort.Strings(known)
		return nil, fmt.Errorf("%w %q, expected one of %s", ErrUnknownSource, name, strings.Join(known, ", "))
	}
	return s, nil
}

// Names returns source names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// All returns sources in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.order))
	for i, name := range r.order {
		out[i] = r.sources[name]
	}
	return out
}

// Fallback tries each source in order and returns the first successful
// series.
type Fallback struct {
	Sources []Source
	Tel     telemetry.API
}

func NewFallback(tel telemetry.API, srcs ...Source) Fallback {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Fallback{
		Sources: srcs,
		Tel:     telemetry.NewScopedAPI("fallback", tel),
	}
}

func (f Fallback) Name() string {
	names := make([]string, len(f.Sources))
	for i, s := range f.Sources {
		names[i] = s.Name()
	}
	return "auto(" + strings.Join(names, ",") + ")"
}

func (f Fallback) Fetch(ctx context.Context, r series.Range) (series.Series, error) {
	if len(f.Sources) == 0 {
		return series.Series{}, fmt.Errorf("fallback: no sources configured")
	}

	var errs []error
	for _, s := range f.Sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := s.Fetch(ctx, r)
		if err == nil {
			return result, nil
		}
		if f.Tel != nil {
			f.Tel.ReportWarning("fetch", s.Name(), err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return series.Series{}, errors.Join(errs...)
}
