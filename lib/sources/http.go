package sources

import (
	"ratewatch-backend/lib/restyutil"
	"ratewatch-backend/lib/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "ratewatch/1.0 (+https://github.com/ratewatch/ratewatch-backend)"

// ClientOptions are shared by every statistical api client.
type ClientOptions struct {
	// BaseUrl overrides the api's default base url.
	BaseUrl string
	Timeout time.Duration
	// Dump receives every raw request/response pair when set.
	Dump restyutil.Output
}

// NewHTTPClient returns an instrumented resty client for an api.
func NewHTTPClient(name, defaultBaseUrl string, opts ClientOptions) *resty.Client {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(timeout)
	client.SetHeader("user-agent", userAgent)
	telemetry.InstrumentResty(client, "ratewatch.sources."+name)
	restyutil.DumpMessages(client, name, opts.Dump)
	return client
}

// CheckStatus is the equivalent of raise_for_status.
func CheckStatus(source string, res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return &StatusError{
		Source: source,
		Code:   res.StatusCode(),
		Body:   res.String(),
	}
}
