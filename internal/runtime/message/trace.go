package message

import (
	"context"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceParent is the W3C traceparent header value.
type TraceParent string

func (p TraceParent) String() string { return string(p) }

// TraceState is the W3C tracestate header value.
type TraceState string

func (s TraceState) String() string { return string(s) }

var traceContext = propagation.TraceContext{}

// SpanContext parses the trace parent together with state. Empty or malformed
// values yield an invalid span context, which OTel treats as "no parent".
func (p TraceParent) SpanContext(state TraceState) trace.SpanContext {
	if p == "" {
		return trace.SpanContext{}
	}
	carrier := propagation.MapCarrier{"traceparent": string(p)}
	if state != "" {
		carrier["tracestate"] = string(state)
	}
	ctx := traceContext.Extract(context.Background(), carrier)
	return trace.SpanContextFromContext(ctx)
}

// ContextWithTrace returns ctx carrying the remote span context and baggage
// of header, so spans started by the dispatch pipeline join the producer's
// trace.
func ContextWithTrace(ctx context.Context, header Header) context.Context {
	if sc := header.TraceParent.SpanContext(header.TraceState); sc.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
	}
	if len(header.Baggage) > 0 {
		ctx = baggage.ContextWithBaggage(ctx, header.Baggage.OTel())
	}
	return ctx
}
