package dashboard

import (
	"context"
	"net/http"
	"ratewatch-backend/lib/chrono"
	"ratewatch-backend/lib/ratestore"
	"ratewatch-backend/lib/resultcache"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/serviceutil"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/sources/catalog"
	"ratewatch-backend/lib/telemetry"
	"ratewatch-backend/lib/webpage"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/dashboard")

type Refresher interface {
	RefreshAll(ctx context.Context) ([]ratestore.Run, error)
}

type Options struct {
	DefaultDays int `json:"default_days"`
	// AccessToken guards the refresh endpoint, no check when empty.
	AccessToken     string `json:"access_token"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	CacheSize       int    `json:"cache_size"`
}

type Service struct {
	registry *sources.Registry
	fetcher  webpage.Fetcher
	// browser is nil when browser rendering is disabled
	browser webpage.Fetcher
	time    chrono.TimeAPI
	tel     telemetry.API
	opts    Options

	// optional
	store     *ratestore.Store
	refresher Refresher

	seriesCache *resultcache.Cache[series.Series]
	pageCache   *resultcache.Cache[webpage.Page]
}

type Dependencies struct {
	Registry  *sources.Registry
	Fetcher   webpage.Fetcher
	Browser   webpage.Fetcher
	Time      chrono.TimeAPI
	Tel       telemetry.API
	Store     *ratestore.Store
	Refresher Refresher
}

func NewService(deps Dependencies, opts Options) Service {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 30
	}
	if deps.Time == nil {
		deps.Time = chrono.NewStandardTime()
	}
	if deps.Tel == nil {
		deps.Tel = telemetry.SlogAPI{}
	}
	cacheOpts := resultcache.Options{
		TTL:  secondsOrZero(opts.CacheTTLSeconds),
		Size: opts.CacheSize,
	}

	return Service{
		registry:    deps.Registry,
		fetcher:     deps.Fetcher,
		browser:     deps.Browser,
		time:        deps.Time,
		tel:         telemetry.NewScopedAPI("dashboard", deps.Tel),
		opts:        opts,
		store:       deps.Store,
		refresher:   deps.Refresher,
		seriesCache: resultcache.New[series.Series](cacheOpts),
		pageCache:   resultcache.New[webpage.Page](cacheOpts),
	}
}

// Handler routes every dashboard endpoint.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /chart.svg", s.handleChart)
	mux.HandleFunc("GET /api/series", s.handleSeriesAPI)
	mux.HandleFunc("GET /page", s.handlePage)
	mux.HandleFunc("GET /api/page", s.handlePageAPI)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /api/refresh", serviceutil.VerifyAccessToken(
		s.opts.AccessToken,
		http.HandlerFunc(s.handleRefresh),
	))
	return mux
}

func (s Service) defaultSource() string {
	names := s.registry.Names()
	for _, name := range names {
		if name == catalog.Auto {
			return name
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func secondsOrZero(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
