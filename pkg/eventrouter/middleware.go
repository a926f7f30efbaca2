package eventrouter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// Middleware rewrites a record on its way to the handlers, for example to
// enrich or redact its payload. Changes to ID and Event are ignored. The
// history always keeps the record as emitted.
//
// A middleware that fails, by error or panic, is logged and skipped: the
// next one receives the record as it was before the failure.
type Middleware func(ctx context.Context, rec Record) (Record, error)

// WithMiddleware appends middleware to the delivery pipeline.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.Use(mw...)
	}
}

// Use appends middleware to the delivery pipeline. Middleware runs in the
// order it was added, once per delivered emission, and only when the event
// has handlers.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	r.middleware = append(slices.Clip(r.middleware), mw...)
	n := len(r.middleware)
	r.mu.Unlock()

	r.logger.Debug("event middleware registered", slog.Int("middleware", n))
}

// applyMiddleware runs pipeline over rec.
func (r *Router) applyMiddleware(ctx context.Context, pipeline []Middleware, rec Record) Record {
	out := rec
	for i, mw := range pipeline {
		next, err := safeMiddleware(ctx, mw, out)
		if err != nil {
			observability.LogMiddlewareError(r.logger, rec.Event, rec.ID, i, err)
			continue
		}
		next.ID, next.Event = rec.ID, rec.Event
		out = next
	}
	return out
}

func safeMiddleware(ctx context.Context, mw Middleware, rec Record) (out Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("middleware panic: %v", p)
		}
	}()
	return mw(ctx, rec)
}
