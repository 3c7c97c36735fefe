package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/render"
	"ratewatch-backend/lib/resultcache"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/webpage"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// badRequest marks errors caused by the request parameters.
type badRequest struct {
	err error
}

func (e badRequest) Error() string {
	return e.err.Error()
}

func (e badRequest) Unwrap() error {
	return e.err
}

func statusFor(err error) int {
	var bad badRequest
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

type seriesQuery struct {
	Source string
	Range  series.Range
	Start  string
	End    string
	Days   int
}

func (s Service) parseSeriesQuery(values url.Values) (seriesQuery, error) {
	q := seriesQuery{
		Source: strings.TrimSpace(values.Get("source")),
		Start:  values.Get("start"),
		End:    values.Get("end"),
		Days:   s.opts.DefaultDays,
	}
	if q.Source == "" {
		q.Source = s.defaultSource()
	}
	if raw := values.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 || days > 3660 {
			return q, badRequest{fmt.Errorf("days must be between 1 and 3660, got %q", raw)}
		}
		q.Days = days
	}
	if _, err := s.registry.Lookup(q.Source); err != nil {
		return q, badRequest{err}
	}

	r, err := series.ParseRange(s.time.Now(), q.Start, q.End, q.Days)
	if err != nil {
		return q, badRequest{err}
	}
	q.Range = r
	q.Start = r.StartString()
	q.End = r.EndString()
	return q, nil
}

func (s Service) fetchSeries(ctx context.Context, q seriesQuery) (series.Series, error) {
	ctx, span := tracer.Start(ctx, "fetchSeries")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", q.Source),
		attribute.String("range", q.Range.String()),
	)

	src, err := s.registry.Lookup(q.Source)
	if err != nil {
		return series.Series{}, badRequest{err}
	}
	key := resultcache.Key("series", src.Name(), q.Range.String())
	result, err := s.seriesCache.GetOrLoad(ctx, key, func(ctx context.Context) (series.Series, error) {
		return src.Fetch(ctx, q.Range)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportWarning("fetch-series", q.Source, err)
		return series.Series{}, err
	}
	return result, nil
}

type seriesView struct {
	Query   seriesQuery
	Sources []string
	Series  series.Series
	Rows    []series.Row
	Stats   series.Stats
	Latest  series.Observation
	HasData bool
	Error   string
	// ChartURL is the query string of the chart endpoint.
	ChartURL string
}

func (s Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := seriesView{Sources: s.registry.Names()}

	q, err := s.parseSeriesQuery(r.URL.Query())
	view.Query = q
	if err != nil {
		view.Error = err.Error()
		s.renderTemplate(w, statusFor(err), "index.html", view)
		return
	}

	result, err := s.fetchSeries(r.Context(), q)
	if err != nil {
		view.Error = err.Error()
		s.renderTemplate(w, statusFor(err), "index.html", view)
		return
	}

	view.Series = result
	view.Rows = result.Rows()
	view.Stats = result.Stats()
	view.Latest, view.HasData = result.Latest()
	view.ChartURL = "/chart.svg?" + url.Values{
		"source": {q.Source},
		"start":  {q.Start},
		"end":    {q.End},
	}.Encode()
	s.renderTemplate(w, http.StatusOK, "index.html", view)
}

func (s Service) handleChart(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseSeriesQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	result, err := s.fetchSeries(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	var buf bytes.Buffer
	err = render.Chart(&buf, result, render.SVG, render.ChartOptions{})
	if errors.Is(err, render.ErrEmptySeries) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.tel.ReportBroken("render-chart", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", render.SVG.ContentType())
	w.Header().Set("cache-control", "max-age=300")
	w.Write(buf.Bytes())
}

type seriesResponse struct {
	Key       string       `json:"key"`
	Source    string       `json:"source"`
	Label     string       `json:"label"`
	Frequency string       `json:"frequency"`
	Start     string       `json:"start"`
	End       string       `json:"end"`
	Rows      []series.Row `json:"rows"`
}

func (s Service) handleSeriesAPI(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseSeriesQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.fetchSeries(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{
		Key:       result.Key,
		Source:    result.Source,
		Label:     result.Label,
		Frequency: result.Frequency.String(),
		Start:     q.Start,
		End:       q.End,
		Rows:      result.Rows(),
	})
}

type pageQuery struct {
	URL     string
	Browser bool
	Heading string
	Numbers bool
	Links   bool
}

func parseBool(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	if raw == "on" {
		return true, nil
	}
	return strconv.ParseBool(raw)
}

// parsePageQuery reads the extraction parameters. numbersDefault applies
// when "numbers" is absent, html forms omit unchecked checkboxes.
func (s Service) parsePageQuery(values url.Values, numbersDefault bool) (pageQuery, error) {
	q := pageQuery{
		URL:     strings.TrimSpace(values.Get("url")),
		Heading: strings.TrimSpace(values.Get("heading")),
	}
	if q.URL == "" {
		return q, badRequest{fmt.Errorf("url is required")}
	}
	var err error
	if q.Browser, err = parseBool(values.Get("browser"), false); err != nil {
		return q, badRequest{fmt.Errorf("browser: %w", err)}
	}
	if q.Numbers, err = parseBool(values.Get("numbers"), numbersDefault); err != nil {
		return q, badRequest{fmt.Errorf("numbers: %w", err)}
	}
	if q.Links, err = parseBool(values.Get("links"), false); err != nil {
		return q, badRequest{fmt.Errorf("links: %w", err)}
	}
	if q.Browser && s.browser == nil {
		return q, badRequest{fmt.Errorf("browser rendering is not enabled")}
	}
	return q, nil
}

func (s Service) fetchPage(ctx context.Context, q pageQuery) (webpage.Page, error) {
	ctx, span := tracer.Start(ctx, "fetchPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", q.URL),
		attribute.Bool("browser", q.Browser),
	)

	fetcher := s.fetcher
	if q.Browser {
		fetcher = s.browser
	}
	key := resultcache.Key("page", q.URL, q.Browser, q.Heading, q.Numbers, q.Links)
	page, err := s.pageCache.GetOrLoad(ctx, key, func(ctx context.Context) (webpage.Page, error) {
		doc, err := fetcher.Fetch(ctx, q.URL)
		if err != nil {
			return webpage.Page{}, err
		}
		return webpage.Extract(ctx, doc, webpage.ExtractOptions{
			Heading: q.Heading,
			Numbers: q.Numbers,
			Links:   q.Links,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportWarning("fetch-page", q.URL, err)
		if errors.Is(err, webpage.ErrHeadingNotFound) {
			return webpage.Page{}, badRequest{err}
		}
		return webpage.Page{}, err
	}
	return page, nil
}

type pageView struct {
	Query      pageQuery
	Page       webpage.Page
	HasPage    bool
	BrowserOff bool
	Error      string
}

func (s Service) handlePage(w http.ResponseWriter, r *http.Request) {
	view := pageView{BrowserOff: s.browser == nil}
	if r.URL.Query().Get("url") == "" {
		view.Query.Numbers = true
		s.renderTemplate(w, http.StatusOK, "page.html", view)
		return
	}

	q, err := s.parsePageQuery(r.URL.Query(), false)
	view.Query = q
	if err != nil {
		view.Error = err.Error()
		s.renderTemplate(w, statusFor(err), "page.html", view)
		return
	}
	page, err := s.fetchPage(r.Context(), q)
	if err != nil {
		view.Error = err.Error()
		s.renderTemplate(w, statusFor(err), "page.html", view)
		return
	}
	view.Page = page
	view.HasPage = true
	s.renderTemplate(w, http.StatusOK, "page.html", view)
}

func (s Service) handlePageAPI(w http.ResponseWriter, r *http.Request) {
	q, err := s.parsePageQuery(r.URL.Query(), true)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.fetchPage(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type runResponse struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SeriesKey  string `json:"series_key"`
	Start      string `json:"start"`
	End        string `json:"end"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
}

func toRunResponses(runs []ratestore.Run) []runResponse {
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runResponse{
			ID:         run.ID,
			Source:     run.Source,
			SeriesKey:  run.SeriesKey,
			Start:      run.Range.StartString(),
			End:        run.Range.EndString(),
			StartedAt:  run.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			DurationMs: run.Duration().Milliseconds(),
			Count:      run.Count,
			Error:      run.Error,
		}
	}
	return out
}

func (s Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, badRequest{fmt.Errorf("no database configured")})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, badRequest{fmt.Errorf("invalid limit %q", raw)})
			return
		}
		limit = n
	}
	runs, err := s.store.Runs(r.Context(), limit)
	if err != nil {
		s.tel.ReportBroken("list-runs", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toRunResponses(runs))
}

func (s Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, badRequest{fmt.Errorf("refreshing is not enabled")})
		return
	}
	runs, err := s.refresher.RefreshAll(r.Context())
	// cached results predate the refresh
	s.seriesCache.Purge()

	status := http.StatusOK
	res := struct {
		Runs  []runResponse `json:"runs"`
		Error string        `json:"error,omitempty"`
	}{Runs: toRunResponses(runs)}
	if err != nil {
		status = http.StatusBadGateway
		res.Error = err.Error()
	}
	writeJSON(w, status, res)
}

type healthResponse struct {
	Status  string            `json:"status"`
	Sources []string          `json:"sources"`
	Series  resultcache.Stats `json:"series_cache"`
	Pages   resultcache.Stats `json:"page_cache"`
}

func (s Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Sources: s.registry.Names(),
		Series:  s.seriesCache.Stats(),
		Pages:   s.pageCache.Stats(),
	})
}

type errorResponse struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
	Status int    `json:"upstream_status,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	res := errorResponse{Error: err.Error()}
	var statusErr *sources.StatusError
	if errors.As(err, &statusErr) {
		res.Source = statusErr.Source
		res.Status = statusErr.Code
	}
	writeJSON(w, statusFor(err), res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write json response", "err", err)
	}
}
