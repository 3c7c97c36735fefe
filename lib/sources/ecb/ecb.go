package ecb

import (
	"context"
	"fmt"
	"ratewatch-backend/lib/sdmx"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"

	"github.com/go-resty/resty/v2"
)

const (
	Name           = "ecb"
	DefaultBaseUrl = "https://data-api.ecb.europa.eu/service"
	DefaultFlow    = "FM"
	// Euribor 3 month, monthly average, historical close.
	DefaultKey = "M.U2.EUR.RT.MM.EURIBOR3MD_.HSTA"
)

type Options struct {
	sources.ClientOptions
	Flow string
	Key  string
}

type Client struct {
	http *resty.Client
	flow string
	key  string
}

func NewClient(opts Options) *Client {
	flow := opts.Flow
	if flow == "" {
		flow = DefaultFlow
	}
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	return &Client{
		http: sources.NewHTTPClient(Name, DefaultBaseUrl, opts.ClientOptions),
		flow: flow,
		key:  key,
	}
}

func (c *Client) Name() string {
	return Name
}

// Fetch requests whole months, so the first observation may predate the
// range start by up to a month.
func (c *Client) Fetch(ctx context.Context, r series.Range) (series.Series, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json").
		SetPathParams(map[string]string{
			"flow": c.flow,
			"key":  c.key,
		}).
		SetQueryParams(map[string]string{
			"startPeriod": r.Start.Format("2006-01"),
			"endPeriod":   r.End.Format("2006-01"),
			"format":      "jsondata",
		}).
		Get("/data/{flow}/{key}")
	if err != nil {
		return series.Series{}, fmt.Errorf("ecb: %w", err)
	}
	if err := sources.CheckStatus(Name, res); err != nil {
		return series.Series{}, err
	}

	out, err := sdmx.ParseJSON(res.Body(), series.EuriborLabel)
	if err != nil {
		return series.Series{}, fmt.Errorf("ecb: %w", err)
	}
	out.Key = fmt.Sprintf("%s.%s", c.flow, c.key)
	out.Source = Name
	if out.Frequency == series.Unknown {
		out.Frequency = series.Monthly
	}
	return out, nil
}
