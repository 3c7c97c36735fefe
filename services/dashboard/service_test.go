package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/webpage"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	err   error
	calls int
}

func (s *stubSource) Name() string {
	return s.name
}

func (s *stubSource) Fetch(ctx context.Context, r series.Range) (series.Series, error) {
	s.calls++
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

type stubFetcher struct {
	docs  map[string]webpage.Document
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (webpage.Document, error) {
	f.calls++
	doc, ok := f.docs[url]
	if !ok {
		return webpage.Document{}, &sources.StatusError{Source: url, Code: http.StatusNotFound}
	}
	return doc, nil
}

type stubRefresher struct {
	calls int
}

func (r *stubRefresher) RefreshAll(ctx context.Context) ([]ratestore.Run, error) {
	r.calls++
	return []ratestore.Run{{ID: "run1", Source: "ecb", Count: 2}}, nil
}

type fixture struct {
	ecb       *stubSource
	broken    *stubSource
	fetcher   *stubFetcher
	refresher *stubRefresher
	handler   http.Handler
}

func newFixture() fixture {
	f := fixture{
		ecb:    &stubSource{name: "ecb"},
		broken: &stubSource{name: "bundesbank", err: &sources.StatusError{Source: "bundesbank", Code: 503, Body: "maintenance"}},
		fetcher: &stubFetcher{docs: map[string]webpage.Document{
			"https://rates.example.com/": {
				URL:         "https://rates.example.com/",
				ContentType: "text/html",
				Body:        []byte(`<html><head><title>Rates</title></head><body><h2>Euribor</h2><p>3M is at 3,512 %</p></body></html>`),
			},
		}},
		refresher: &stubRefresher{},
	}
	service := NewService(Dependencies{
		Registry:  sources.NewRegistry(f.ecb, f.broken),
		Fetcher:   f.fetcher,
		Time:      chrono.FixedTime{At: time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC)},
		Refresher: f.refresher,
	}, Options{AccessToken: "secret"})
	f.handler = service.Handler()
	return f
}

func (f fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndex(t *testing.T) {
	f := newFixture()

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<td>2024-02-05</td>")
	require.Contains(t, body, "3.893")
	require.Contains(t, body, `<option value="ecb" selected>`)
	require.Contains(t, body, "/chart.svg?end=2024-02-05&amp;source=ecb&amp;start=2024-01-06")

	// served from the cache
	rec = f.get(t, "/?source=ecb")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.ecb.calls)
}

func TestIndexErrors(t *testing.T) {
	f := newFixture()

	rec := f.get(t, "/?source=boe")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown source")

	rec = f.get(t, "/?start=2024-02-01&end=2024-01-01")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(t, "/?source=bundesbank")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "unexpected status 503")

	// failures are not cached
	f.get(t, "/?source=bundesbank")
	require.Equal(t, 2, f.broken.calls)
}

func TestSeriesAPI(t *testing.T) {
	f := newFixture()

	rec := f.get(t, "/api/series?source=ecb&days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	var res seriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "2024-01-29", res.Start)
	require.Equal(t, []series.Row{
		{Date: "2024-02-04", Value: "3.902"},
		{Date: "2024-02-05", Value: "3.893"},
	}, res.Rows)

	rec = f.get(t, "/api/series?source=bundesbank")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var errRes errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
	require.Equal(t, 503, errRes.Status)

	rec = f.get(t, "/api/series?days=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChart(t *testing.T) {
	f := newFixture()
	rec := f.get(t, "/chart.svg?source=ecb")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/svg+xml", rec.Header().Get("content-type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))
}

func TestPage(t *testing.T) {
	f := newFixture()

	rec := f.get(t, "/page")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "render in browser")
	require.Contains(t, rec.Body.String(), `name="numbers" value="true" checked`)

	rec = f.get(t, "/page?url=https://rates.example.com/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h2>Rates</h2>")
	require.Contains(t, rec.Body.String(), "3M is at 3,512 %")
	// an unchecked numbers checkbox is omitted from the form submission
	require.NotContains(t, rec.Body.String(), "<h3>Numbers</h3>")

	rec = f.get(t, "/page?url=https://rates.example.com/&numbers=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h3>Numbers</h3>")

	rec = f.get(t, "/api/page?url=https://rates.example.com/&heading=euribor")
	require.Equal(t, http.StatusOK, rec.Code)
	var page webpage.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, "Euribor", page.Section.Heading)
	require.Len(t, page.Numbers, 1)
	require.Equal(t, "3.512", page.Numbers[0].Value.String())

	rec = f.get(t, "/api/page?url=https://rates.example.com/&heading=mortgages")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(t, "/api/page?url=https://rates.example.com/missing")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.get(t, "/api/page?url=https://rates.example.com/&browser=true")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "browser rendering is not enabled")

	rec = f.get(t, "/api/page")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAndHealth(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 0, f.refresher.calls)

	req = httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.refresher.calls)
	require.Contains(t, rec.Body.String(), `"id":"run1"`)

	rec = f.get(t, "/api/runs")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	f.get(t, "/api/series?source=ecb")
	rec = f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, []string{"ecb", "bundesbank"}, health.Sources)
	require.Equal(t, 1, health.Series.Entries)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(badRequest{errors.New("x")}))
	require.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	require.Equal(t, http.StatusBadGateway, statusFor(errors.New("boom")))
}
