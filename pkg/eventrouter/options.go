package eventrouter

import (
	"log/slog"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(r *Router) {
		if enabled {
			r.metrics = observability.NewMetricsRecorder()
		} else {
			r.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables or disables OpenTelemetry tracing.
func WithTracing(enabled bool) Option {
	return func(r *Router) {
		if enabled {
			r.spans = observability.NewSpanManager()
		} else {
			r.spans = observability.NoopSpanManager{}
		}
	}
}

// WithArchive sends records evicted from the history ring to a, in eviction
// order, from a background goroutine. Close waits for pending appends.
func WithArchive(a Archiver) Option {
	return func(r *Router) {
		r.archive = a
	}
}

// EmitOption configures a single emission.
type EmitOption func(*emitOptions)

type emitOptions struct {
	sourceModule  string
	correlationID string
	replyTo       string
	waitForAll    bool
}

// WithSourceModule tags the emission with its producer.
// Defaults to DefaultSourceModule.
func WithSourceModule(name string) EmitOption {
	return func(o *emitOptions) {
		if name != "" {
			o.sourceModule = name
		}
	}
}

// WithCorrelationID overrides the generated correlation id.
func WithCorrelationID(id string) EmitOption {
	return func(o *emitOptions) {
		o.correlationID = id
	}
}

// WithWaitForAll makes Emit return only after every handler for the
// emission has settled, or the emit context is done.
func WithWaitForAll(wait bool) EmitOption {
	return func(o *emitOptions) {
		o.waitForAll = wait
	}
}
