package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedReport struct {
	kind   string
	id     string
	params []any
}

type recordingAPI struct {
	reports []recordedReport
}

func (r *recordingAPI) ReportBroken(id string, params ...any) {
	r.reports = append(r.reports, recordedReport{kind: "broken", id: id, params: params})
}

func (r *recordingAPI) ReportWarning(id string, params ...any) {
	r.reports = append(r.reports, recordedReport{kind: "warning", id: id, params: params})
}

func (r *recordingAPI) ReportDebug(msg string, params ...any) {
	r.reports = append(r.reports, recordedReport{kind: "debug", id: msg, params: params})
}

func (r *recordingAPI) ReportCount(id string, count int64) {
	r.reports = append(r.reports, recordedReport{kind: "count", id: id, params: []any{count}})
}

func TestScopedAPI(t *testing.T) {
	inner := &recordingAPI{}
	scoped := NewScopedAPI("sources", NewScopedAPI("fallback", inner))

	scoped.ReportBroken("fetch", "ecb", 502)
	scoped.ReportWarning("fetch")
	scoped.ReportDebug("trying source", "fred")
	scoped.ReportCount("observations", 31)

	require.Equal(t, []recordedReport{
		{kind: "broken", id: "fallback.sources.fetch", params: []any{"ecb", 502}},
		{kind: "warning", id: "fallback.sources.fetch", params: nil},
		{kind: "debug", id: "fallback: sources: trying source", params: []any{"fred"}},
		{kind: "count", id: "fallback.sources.observations", params: []any{int64(31)}},
	}, inner.reports)
}
