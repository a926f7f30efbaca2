package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartEmitSpan starts a span covering one emission.
	StartEmitSpan(ctx context.Context, event, correlationID string) (context.Context, trace.Span)

	// StartDispatchSpan starts a span for delivering an event to its listeners.
	// It should be a child of the emit span.
	StartDispatchSpan(ctx context.Context, event string, listeners int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// tracerName identifies spans started by the router.
const tracerName = "eventrouter"

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager backed by the global OTel tracer
// provider. Set the provider with otel.SetTracerProvider first.
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer(tracerName)}
}

func (m *otelSpanManager) StartEmitSpan(ctx context.Context, event, correlationID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "eventrouter.emit",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.name", event),
			attribute.String("event.correlation_id", correlationID),
		),
	)
}

func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, event string, listeners int) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "eventrouter.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("event.name", event),
			attribute.Int("event.listeners", listeners),
		),
	)
}

// EndSpanWithError marks span failed when err is non-nil and ends it.
// A nil span is ignored.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent is a no-op unless ctx carries a recording span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
