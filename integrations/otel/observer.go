// Package otel traces retry calls with OpenTelemetry. Each settled call
// becomes one span with an event per attempt.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playson-dev/node-promise-retry/observe"
	"github.com/playson-dev/node-promise-retry/policy"
)

const instrumentationName = "github.com/playson-dev/node-promise-retry/integrations/otel"

// Observer emits a span per call. Spans are created when the call settles,
// back-dated to its start, so no per-call state is held.
type Observer struct {
	observe.BaseObserver
	tracer trace.Tracer
}

// NewObserver creates an Observer. A nil provider uses the global one.
func NewObserver(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{tracer: tp.Tracer(instrumentationName)}
}

func (o *Observer) OnSuccess(ctx context.Context, key policy.Key, tl observe.Timeline) {
	o.record(ctx, key, tl)
}

func (o *Observer) OnFailure(ctx context.Context, key policy.Key, tl observe.Timeline) {
	o.record(ctx, key, tl)
}

func (o *Observer) record(ctx context.Context, key policy.Key, tl observe.Timeline) {
	name := "retry"
	if !key.IsZero() {
		name = "retry " + key.String()
	}

	_, span := o.tracer.Start(ctx, name,
		trace.WithTimestamp(tl.Start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("retry.key", key.String()),
			attribute.String("retry.call_id", tl.ID),
			attribute.Int("retry.max_retries", tl.Config.Retries),
			attribute.Int("retry.attempts", len(tl.Attempts)),
			attribute.Bool("retry.resolved", tl.Resolved),
		),
	)

	for _, rec := range tl.Attempts {
		attrs := []attribute.KeyValue{
			attribute.Int("retry.attempt", rec.Attempt),
			attribute.String("retry.result", string(rec.Result)),
		}
		if rec.Backoff > 0 {
			attrs = append(attrs, attribute.Int64("retry.backoff_ms", rec.Backoff.Milliseconds()))
		}
		if rec.Exhausted {
			attrs = append(attrs, attribute.Bool("retry.exhausted", true))
		}
		if rec.Err != nil {
			attrs = append(attrs, attribute.String("retry.error", rec.Err.Error()))
		}
		span.AddEvent("attempt", trace.WithTimestamp(rec.EndTime), trace.WithAttributes(attrs...))
	}

	if tl.Resolved {
		span.SetStatus(codes.Ok, "")
	} else if tl.FinalErr != nil {
		span.RecordError(tl.FinalErr)
		span.SetStatus(codes.Error, tl.FinalErr.Error())
	}
	span.End(trace.WithTimestamp(tl.End))
}
