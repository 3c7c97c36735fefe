package bundesbank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"ratewatch-backend/lib/restyutil"
	"ratewatch-backend/lib/series"
	"ratewatch-backend/lib/sources"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const response = `"";BBIG1.D.D0.EUR.MMKT.EURIBOR.M03.BID._Z;BBIG1.D.D0.EUR.MMKT.EURIBOR.M03.BID._Z_FLAGS
"Euribor 3 months";;
unit;% p.a.;
TIME_PERIOD;OBS_VALUE;OBS_STATUS
2024-01-29;3,925;
2024-01-30;3,915;
2024-01-31;3,902;
2024-02-01;.;No value available
"General: rates are daily";;
`

func TestFetch(t *testing.T) {
	var query map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("content-type", "text/csv")
		w.Write([]byte(response))
	}))
	defer srv.Close()

	client := NewClient(Options{
		ClientOptions: sources.ClientOptions{BaseUrl: srv.URL},
	})
	r := series.Range{
		Start: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	result, err := client.Fetch(context.Background(), r)
	require.NoError(t, err)

	require.Equal(t, "/data/BBIG1/D.D0.EUR.MMKT.EURIBOR.M03.BID._Z", path)
	require.Equal(t, "2024-01-30", query["startPeriod"])
	require.Equal(t, "2024-02-02", query["endPeriod"])
	require.Equal(t, "csv", query["format"])

	require.Equal(t, Name, result.Source)
	require.Equal(t, series.EuriborLabel, result.Label)
	require.Equal(t, series.Daily, result.Frequency)
	require.Equal(t, []series.Row{
		{Date: "2024-01-30", Value: "3.915"},
		{Date: "2024-01-31", Value: "3.902"},
	}, result.Rows())
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("No results found"))
	}))
	defer srv.Close()

	client := NewClient(Options{
		ClientOptions: sources.ClientOptions{BaseUrl: srv.URL},
	})
	_, err := client.Fetch(context.Background(), series.LastDays(time.Now(), 30))

	var statusErr *sources.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
	require.Equal(t, Name, statusErr.Source)
}

func TestFetchWithDump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/csv")
		w.Write([]byte(response))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dump, err := restyutil.NewFilesystemOutput(dir)
	require.NoError(t, err)
	client := NewClient(Options{
		ClientOptions: sources.ClientOptions{BaseUrl: srv.URL, Dump: dump},
	})
	r := series.Range{
		Start: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	result, err := client.Fetch(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())

	contents, err := os.ReadFile(filepath.Join(dir, Name+"-001.txt"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "2024-01-31;3,902")
}
