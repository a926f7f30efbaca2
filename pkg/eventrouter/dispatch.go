package eventrouter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// dispatch starts one goroutine per handler and returns a channel closed once
// all of them have settled. Each goroutine is launched only after the previous
// one has entered its handler, so handlers start in list order while still
// running concurrently. release, if not nil, runs just before the channel is
// closed.
func (r *Router) dispatch(ctx context.Context, rec Record, handlers []Handler, release func()) <-chan struct{} {
	done := make(chan struct{})
	start := time.Now()
	ctx, span := r.spans.StartDispatchSpan(ctx, rec.Event, len(handlers))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	wg.Add(len(handlers))
	for _, h := range handlers {
		started := make(chan struct{})
		go func(h Handler) {
			defer wg.Done()
			if err := r.invoke(ctx, rec, h, started); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(h)
		<-started
	}

	go func() {
		wg.Wait()
		r.metrics.RecordDispatch(ctx, rec.Event, len(handlers), time.Since(start))
		var err error
		if failed > 0 {
			err = fmt.Errorf("%d of %d handlers failed", failed, len(handlers))
		}
		r.spans.EndSpanWithError(span, err)
		if release != nil {
			release()
		}
		close(done)
	}()
	return done
}

// invoke runs a single handler and records its failure, if any. started is
// closed right before the handler is entered.
func (r *Router) invoke(ctx context.Context, rec Record, h Handler, started chan<- struct{}) error {
	err := r.call(ctx, rec, h, started)
	if err == nil {
		return nil
	}

	name := handlerName(h)
	herr := &HandlerError{
		Event:         rec.Event,
		CorrelationID: rec.ID,
		Handler:       name,
		Err:           err,
	}

	r.mu.Lock()
	r.perf.errors++
	r.failures.push(FailedDelivery{
		CorrelationID: rec.ID,
		Event:         rec.Event,
		SourceModule:  rec.SourceModule,
		Handler:       name,
		Error:         err.Error(),
		FailedAt:      time.Now(),
	})
	r.mu.Unlock()

	observability.LogHandlerError(r.logger, rec.Event, rec.ID, name, err)
	r.metrics.RecordHandlerError(ctx, rec.Event)
	return herr
}

// call runs h under the configured timeout. A handler that outlives its
// timeout keeps running in the background but is reported as failed.
func (r *Router) call(ctx context.Context, rec Record, h Handler, started chan<- struct{}) error {
	timeout := r.cfg.HandlerTimeout
	if timeout <= 0 {
		close(started)
		return safeHandle(ctx, h, rec)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		close(started)
		errc <- safeHandle(ctx, h, rec)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("handler exceeded %s: %w", timeout, ctx.Err())
	}
}
