package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// bodies of statistical api responses can be megabytes long, only the
// head of the body is attached to spans
const maxBodyAttribute = 4096

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id uint64
	// only used for durations, so it does not need chrono
	startTime time.Time
}

type instrumentResty struct {
	tracer    trace.Tracer
	idcounter *uint64
}

// InstrumentResty attaches a span and debug logs to every request made by
// the client.
func InstrumentResty(client *resty.Client, tracerName string) {
	var idcounter uint64
	i := instrumentResty{
		tracer:    otel.Tracer(tracerName),
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	})
	slog.DebugContext(ctx, "start request", "request_id", id, "method", req.Method, "url", req.URL)

	req.SetContext(ctx)
	return nil
}

func truncate(s string) string {
	if len(s) <= maxBodyAttribute {
		return s
	}
	return s[:maxBodyAttribute] + "..."
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// request attributes are set here since res.Request.RawRequest is nil in onBeforeRequest
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	span.SetAttributes(attribute.String("response/body", truncate(res.String())))
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	rc, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return nil
	}
	slog.DebugContext(
		ctx, "request finished",
		"request_id", rc.id,
		"status", res.StatusCode(),
		"duration", time.Since(rc.startTime).String(),
		"bytes", len(res.Body()),
	)
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}

	attrs := []any{"method", req.Method, "url", req.URL, "err", err}
	if rc, ok := ctx.Value(reqCtxKey).(reqCtx); ok {
		attrs = append(attrs, "request_id", rc.id, "duration", time.Since(rc.startTime).String())
	}
	slog.WarnContext(ctx, "request failed", attrs...)
}
