package webpage

import (
	"context"
	"fmt"
	"net/url"
	"ratewatch-backend/lib/restyutil"
	"ratewatch-backend/lib/sources"
	"ratewatch-backend/lib/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type HTTPOptions struct {
	Timeout          time.Duration
	CloudflareBypass bool
	UserAgent        string
	Dump             restyutil.Output
}

// HTTPFetcher fetches pages with a single GET request.
type HTTPFetcher struct {
	http *resty.Client
}

func NewHTTPFetcher(opts HTTPOptions) HTTPFetcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 20
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = browserUserAgent
	}

	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(timeout)
	telemetry.InstrumentResty(client, "ratewatch.lib.webpage")
	restyutil.DumpMessages(client, "page", opts.Dump)

	return HTTPFetcher{http: client}
}

func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", raw)
	}
	return u, nil
}

func (f HTTPFetcher) Fetch(ctx context.Context, rawUrl string) (Document, error) {
	if _, err := validateURL(rawUrl); err != nil {
		return Document{}, err
	}

	res, err := f.http.R().
		SetContext(ctx).
		Get(rawUrl)
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", rawUrl, err)
	}
	if err := sources.CheckStatus(res.Request.URL, res); err != nil {
		return Document{}, err
	}

	finalUrl := rawUrl
	if raw := res.RawResponse; raw != nil && raw.Request != nil {
		finalUrl = raw.Request.URL.String()
	}
	return Document{
		URL:         rawUrl,
		FinalURL:    finalUrl,
		Status:      res.StatusCode(),
		ContentType: res.Header().Get("content-type"),
		Body:        res.Body(),
	}, nil
}

var _ Fetcher = HTTPFetcher{}
