package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records router metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEmit records an emission and whether it was accepted.
	RecordEmit(ctx context.Context, event string, accepted bool)

	// RecordDispatch records a dispatch with its duration and listener count.
	RecordDispatch(ctx context.Context, event string, listeners int, duration time.Duration)

	// RecordHandlerError records a failed handler invocation.
	RecordHandlerError(ctx context.Context, event string)

	// RecordQueueDepth records the queue length observed after an enqueue or dequeue.
	RecordQueueDepth(ctx context.Context, depth int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	emitted         metric.Int64Counter
	dropped         metric.Int64Counter
	handlerErrors   metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	queueDepth      metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventrouter")

	emitted, err := meter.Int64Counter("eventrouter.events.emitted",
		metric.WithDescription("Number of accepted emissions"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter("eventrouter.events.dropped",
		metric.WithDescription("Number of emissions dropped because the queue was full"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("eventrouter.handler.errors",
		metric.WithDescription("Number of failed handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("eventrouter.dispatch.latency_ms",
		metric.WithDescription("Dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Histogram("eventrouter.queue.depth",
		metric.WithDescription("Observed event queue length"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		emitted:         emitted,
		dropped:         dropped,
		handlerErrors:   handlerErrors,
		dispatchLatency: dispatchLatency,
		queueDepth:      queueDepth,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordEmit(ctx context.Context, event string, accepted bool) {
	attrs := metric.WithAttributes(attribute.String("event", event))
	if accepted {
		m.emitted.Add(ctx, 1, attrs)
		return
	}
	m.dropped.Add(ctx, 1, attrs)
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, event string, listeners int, duration time.Duration) {
	m.dispatchLatency.Record(ctx, float64(duration.Microseconds())/1000,
		metric.WithAttributes(
			attribute.String("event", event),
			attribute.Int("listeners", listeners),
		),
	)
}

func (m *otelMetrics) RecordHandlerError(ctx context.Context, event string) {
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func (m *otelMetrics) RecordQueueDepth(ctx context.Context, depth int) {
	m.queueDepth.Record(ctx, int64(depth))
}
