package ecb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"ratewatch-backend/lib/sdmx"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const response = `{
  "dataSets": [{
    "series": {
      "0:0:0:0:0:0:0": {
        "observations": {
          "0": [3.9347, 0],
          "1": [3.9246, 0],
          "2": [null, 0]
        }
      }
    }
  }],
  "structure": {
    "dimensions": {
      "observation": [{
        "id": "TIME_PERIOD",
        "values": [{"id": "2023-12"}, {"id": "2024-01"}, {"id": "2024-02"}]
      }]
    }
  }
}`

func TestFetch(t *testing.T) {
	var r *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r = req
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(response))
	}))
	defer srv.Close()

	client := NewClient(Options{
		ClientOptions: sources.ClientOptions{BaseUrl: srv.URL},
	})
	result, err := client.Fetch(context.Background(), series.Range{
		Start: time.Date(2023, 12, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Equal(t, "/data/FM/M.U2.EUR.RT.MM.EURIBOR3MD_.HSTA", r.URL.Path)
	require.Equal(t, "2023-12", r.URL.Query().Get("startPeriod"))
	require.Equal(t, "2024-02", r.URL.Query().Get("endPeriod"))
	require.Equal(t, "jsondata", r.URL.Query().Get("format"))

	require.Equal(t, Name, result.Source)
	require.Equal(t, series.Monthly, result.Frequency)
	require.Equal(t, []series.Row{
		{Date: "2023-12-01", Value: "3.9347"},
		{Date: "2024-01-01", Value: "3.9246"},
	}, result.Rows())
}

func TestFetchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"dataSets": [{"series": {}}], "structure": {"dimensions": {"observation": [{"id": "TIME_PERIOD", "values": [{"id": "2024-01"}]}]}}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{
		ClientOptions: sources.ClientOptions{BaseUrl: srv.URL},
	})
	_, err := client.Fetch(context.Background(), series.LastDays(time.Now(), 30))
	require.ErrorIs(t, err, sdmx.ErrNoObservations)
}
