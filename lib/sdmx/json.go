package sdmx

import (
	"fmt"
	"ratewatch-backend/lib/series"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ParseJSON reshapes an SDMX-JSON data message into a series. The period of
// each observation is looked up in the TIME_PERIOD observation dimension,
// only the first series of the first dataset is read.
func ParseJSON(body []byte, label string) (series.Series, error) {
	if !gjson.ValidBytes(body) {
		return series.Series{}, fmt.Errorf("sdmx-json: invalid json")
	}
	doc := gjson.ParseBytes(body)

	periods := doc.Get(`structure.dimensions.observation.#(id=="TIME_PERIOD").values.#.id`).Array()
	if len(periods) == 0 {
		// some providers only ship a single unnamed observation dimension
		periods = doc.Get("structure.dimensions.observation.0.values.#.id").Array()
	}
	if len(periods) == 0 {
		return series.Series{}, fmt.Errorf("%w: TIME_PERIOD dimension", ErrColumnNotFound)
	}

	observations, key := firstSeriesObservations(doc)
	if !observations.Exists() {
		return series.Series{}, ErrNoObservations
	}

	out := series.Series{Key: key, Label: label}
	var walkErr error
	observations.ForEach(func(k, v gjson.Result) bool {
		idx, err := observationIndex(k.String())
		if err != nil {
			walkErr = err
			return false
		}
		if idx < 0 || idx >= len(periods) {
			walkErr = fmt.Errorf("sdmx-json: observation index %d out of range", idx)
			return false
		}

		value, ok, err := jsonValue(v.Get("0"))
		if err != nil {
			walkErr = fmt.Errorf("sdmx-json: observation %s: %w", k.String(), err)
			return false
		}
		if !ok {
			return true
		}

		date, freq, err := series.ParsePeriod(periods[idx].String())
		if err != nil {
			walkErr = err
			return false
		}
		if out.Frequency == series.Unknown {
			out.Frequency = freq
		}
		out.Observations = append(out.Observations, series.Observation{Date: date, Value: value})
		return true
	})
	if walkErr != nil {
		return series.Series{}, walkErr
	}
	if len(out.Observations) == 0 {
		return series.Series{}, ErrNoObservations
	}
	out.Sort()
	return out, nil
}

func firstSeriesObservations(doc gjson.Result) (gjson.Result, string) {
	var observations gjson.Result
	var key string
	doc.Get("dataSets.0.series").ForEach(func(k, v gjson.Result) bool {
		observations = v.Get("observations")
		key = k.String()
		return false
	})
	if observations.Exists() {
		return observations, key
	}
	// dimensionAtObservation=AllDimensions flattens the series into the dataset
	return doc.Get("dataSets.0.observations"), ""
}

// observation keys are either "5" or, for flat datasets, "0:0:0:5"
func observationIndex(key string) (int, error) {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[i+1:]
	}
	return strconv.Atoi(key)
}

func jsonValue(v gjson.Result) (decimal.Decimal, bool, error) {
	switch v.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(v.Raw)
		return d, err == nil, err
	case gjson.String:
		if v.Str == "" || v.Str == "NaN" {
			return decimal.Decimal{}, false, nil
		}
		d, err := decimal.NewFromString(v.Str)
		return d, err == nil, err
	}
	return decimal.Decimal{}, false, nil
}
