package fred

import (
	"context"
	"fmt"
	"ratewatch-backend/lib/sdmx"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	Name = "fred"
	// 3-Month or 90-day Rates and Yields: Interbank Rates for the Euro Area.
	DefaultSeriesId = "IR3TIB01EZM156N"
	DefaultApiUrl   = "https://api.stlouisfed.org/fred"
	DefaultGraphUrl = "https://fred.stlouisfed.org/graph"
)

type Options struct {
	sources.ClientOptions
	SeriesId string
	// ApiKey selects the json api, the public graph csv is used without one.
	ApiKey string
}

type Client struct {
	http     *resty.Client
	seriesId string
	apiKey   string
}

func NewClient(opts Options) *Client {
	seriesId := opts.SeriesId
	if seriesId == "" {
		seriesId = DefaultSeriesId
	}
	defaultUrl := DefaultGraphUrl
	if opts.ApiKey != "" {
		defaultUrl = DefaultApiUrl
	}
	return &Client{
		http:     sources.NewHTTPClient(Name, defaultUrl, opts.ClientOptions),
		seriesId: seriesId,
		apiKey:   opts.ApiKey,
	}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) Fetch(ctx context.Context, r series.Range) (series.Series, error) {
	var (
		out series.Series
		err error
	)
	if c.apiKey != "" {
		out, err = c.fetchObservations(ctx, r)
	} else {
		out, err = c.fetchGraphCSV(ctx, r)
	}
	if err != nil {
		return series.Series{}, fmt.Errorf("fred: %w", err)
	}
	out.Key = c.seriesId
	out.Source = Name
	out.Label = series.EuriborLabel
	out.Frequency = inferFrequency(out)
	return out, nil
}

// inferFrequency is needed because fred dates every observation with the
// first day of its period.
func inferFrequency(s series.Series) series.Frequency {
	if len(s.Observations) < 2 {
		return s.Frequency
	}
	for _, o := range s.Observations {
		if o.Date.Day() != 1 {
			return series.Daily
		}
	}
	return series.Monthly
}

func (c *Client) fetchGraphCSV(ctx context.Context, r series.Range) (series.Series, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"id":   c.seriesId,
			"cosd": r.StartString(),
			"coed": r.EndString(),
		}).
		Get("/fredgraph.csv")
	if err != nil {
		return series.Series{}, err
	}
	if err := sources.CheckStatus(Name, res); err != nil {
		return series.Series{}, err
	}
	return sdmx.ParseCSV(res.String(), sdmx.CSVOptions{
		DateColumns:  []string{"observation_date", "DATE"},
		ValueColumns: []string{c.seriesId},
		Label:        series.EuriborLabel,
	})
}

func (c *Client) fetchObservations(ctx context.Context, r series.Range) (series.Series, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_id":         c.seriesId,
			"api_key":           c.apiKey,
			"file_type":         "json",
			"observation_start": r.StartString(),
			"observation_end":   r.EndString(),
		}).
		Get("/series/observations")
	if err != nil {
		return series.Series{}, err
	}
	if err := sources.CheckStatus(Name, res); err != nil {
		return series.Series{}, err
	}
	return parseObservations(res.Body())
}

func parseObservations(body []byte) (series.Series, error) {
	if !gjson.ValidBytes(body) {
		return series.Series{}, fmt.Errorf("observations: invalid json")
	}

	out := series.Series{Label: series.EuriborLabel}
	for _, obs := range gjson.GetBytes(body, "observations").Array() {
		raw := strings.TrimSpace(obs.Get("value").String())
		if raw == "" || raw == "." {
			continue
		}
		date, _, err := series.ParsePeriod(obs.Get("date").String())
		if err != nil {
			return series.Series{}, fmt.Errorf("observations: %w", err)
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return series.Series{}, fmt.Errorf("observations: parse value %q: %w", raw, err)
		}
		out.Observations = append(out.Observations, series.Observation{
			Date:  date,
			Value: value,
		})
	}
	if len(out.Observations) == 0 {
		return series.Series{}, sdmx.ErrNoObservations
	}
	out.Sort()
	return out, nil
}
