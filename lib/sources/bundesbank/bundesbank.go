package bundesbank

import (
	"context"
	"fmt"
	"ratewatch-backend/lib/sdmx"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"

	"github.com/go-resty/resty/v2"
)

const (
	Name           = "bundesbank"
	DefaultBaseUrl = "https://api.statistiken.bundesbank.de/rest"
	// Euribor 3 month, daily, bid rate.
	DefaultFlow = "BBIG1"
	DefaultKey  = "D.D0.EUR.MMKT.EURIBOR.M03.BID._Z"
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

func (c *Client) Fetch(ctx context.Context, r series.Range) (series.Series, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("accept", "text/csv").
		SetPathParams(map[string]string{
			"flow": c.flow,
			"key":  c.key,
		}).
		SetQueryParams(map[string]string{
			"startPeriod": r.StartString(),
			"endPeriod":   r.EndString(),
			"format":      "csv",
			"lang":        "en",
		}).
		Get("/data/{flow}/{key}")
	if err != nil {
		return series.Series{}, fmt.Errorf("bundesbank: %w", err)
	}
	if err := sources.CheckStatus(Name, res); err != nil {
		return series.Series{}, err
	}

	out, err := sdmx.ParseCSV(res.String(), sdmx.CSVOptions{
		Label: series.EuriborLabel,
	})
	if err != nil {
		return series.Series{}, fmt.Errorf("bundesbank: %w", err)
	}
	out.Key = fmt.Sprintf("%s.%s", c.flow, c.key)
	out.Source = Name
	out.Frequency = series.Daily
	return out.Window(r), nil
}
