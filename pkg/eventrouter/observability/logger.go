// Package observability provides structured logging, metrics, and tracing
// helpers for the event router.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds emission context to a logger.
// Returns a new logger with event, correlation_id, and source_module fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "task:created", "task:created_1700000000000_ab12cd34", "tasks")
//	enriched.Info("handling") // includes event, correlation_id, source_module
func EnrichLogger(logger *slog.Logger, event, correlationID, sourceModule string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event", event),
		slog.String("correlation_id", correlationID),
		slog.String("source_module", sourceModule),
	)
}

// LogEmit logs an accepted emission.
func LogEmit(logger *slog.Logger, event, correlationID, sourceModule string, listeners int) {
	if logger == nil {
		return
	}
	logger.Debug("event emitted",
		slog.String("event", event),
		slog.String("correlation_id", correlationID),
		slog.String("source_module", sourceModule),
		slog.Int("listeners", listeners),
	)
}

// LogListenerRegistered logs a new subscription.
func LogListenerRegistered(logger *slog.Logger, event string, total int) {
	if logger == nil {
		return
	}
	logger.Debug("listener registered",
		slog.String("event", event),
		slog.Int("listeners", total),
	)
}

// LogNoListeners logs an emission nobody is subscribed to.
func LogNoListeners(logger *slog.Logger, event string) {
	if logger == nil {
		return
	}
	logger.Debug("no listeners for event",
		slog.String("event", event),
	)
}

// LogHandlerError logs a failed handler invocation.
func LogHandlerError(logger *slog.Logger, event, correlationID, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event handler failed",
		slog.String("event", event),
		slog.String("correlation_id", correlationID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// LogMiddlewareError logs a middleware that failed and was skipped.
func LogMiddlewareError(logger *slog.Logger, event, correlationID string, index int, err error) {
	if logger == nil {
		return
	}
	logger.Error("event middleware failed",
		slog.String("event", event),
		slog.String("correlation_id", correlationID),
		slog.Int("middleware", index),
		slog.String("error", err.Error()),
	)
}

// LogQueueDrop logs an emission rejected because the queue is at capacity.
func LogQueueDrop(logger *slog.Logger, event string, queueSize int) {
	if logger == nil {
		return
	}
	logger.Warn("event queue full, dropping event",
		slog.String("event", event),
		slog.Int("queue_size", queueSize),
	)
}

// LogDispatchError logs a fault raised while draining the queue.
func LogDispatchError(logger *slog.Logger, event, correlationID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("queued event dispatch failed",
		slog.String("event", event),
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()),
	)
}

// LogDrainComplete logs the end of a drain cycle.
func LogDrainComplete(logger *slog.Logger, processed int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event queue drained",
		slog.Int("processed", processed),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogArchiveError logs an archive failure (non-fatal).
func LogArchiveError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event archive failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
