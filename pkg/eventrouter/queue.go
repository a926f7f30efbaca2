package eventrouter

import (
	"context"
	"time"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// enqueueLocked appends rec to the delivery queue and makes sure a drain
// worker is running. It reports false, with the current depth, when the
// queue is full.
func (r *Router) enqueueLocked(ctx context.Context, rec Record, wait bool) (<-chan struct{}, int, bool) {
	if len(r.queue) >= r.cfg.MaxQueueSize {
		r.qstats.totalDropped++
		return nil, len(r.queue), false
	}

	item := &queuedEvent{
		record:   rec,
		queuedAt: time.Now(),
		ctx:      context.WithoutCancel(ctx),
	}
	if wait {
		item.done = make(chan struct{})
	}
	r.queue = append(r.queue, item)
	r.qstats.totalQueued++

	if !r.draining {
		r.draining = true
		r.inflight.Add(1)
		go r.drain()
	}

	return item.done, len(r.queue), true
}

// drain delivers queued events in FIFO order until the queue is empty.
// Only one drain runs at a time; the draining flag is cleared under the same
// lock enqueueLocked checks it with.
func (r *Router) drain() {
	defer r.inflight.Done()

	elapsed := observability.TimedOperation()
	processed := 0
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.queue = nil
			r.mu.Unlock()
			observability.LogDrainComplete(r.logger, processed, elapsed())
			return
		}
		item := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		handlers := r.handlersLocked(item.record.Event)
		pipeline := r.middleware
		depth := len(r.queue)
		r.mu.Unlock()

		r.metrics.RecordQueueDepth(item.ctx, depth)

		err := r.deliver(item, handlers, pipeline)

		r.mu.Lock()
		if err != nil {
			r.perf.errors++
		} else {
			r.qstats.totalProcessed++
		}
		r.mu.Unlock()

		if err != nil {
			observability.LogDispatchError(r.logger, item.record.Event, item.record.ID, err)
		}
		processed++
		if item.done != nil {
			close(item.done)
		}
	}
}

// deliver dispatches one queued event and waits for its handlers. A panic
// escaping the dispatch itself is returned as a *DispatchError.
func (r *Router) deliver(item *queuedEvent, handlers []Handler, pipeline []Middleware) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &DispatchError{
				Event:         item.record.Event,
				CorrelationID: item.record.ID,
				Value:         p,
			}
		}
	}()

	if r.beforeDeliver != nil {
		r.beforeDeliver(item.record)
	}
	if len(handlers) == 0 {
		observability.LogNoListeners(r.logger, item.record.Event)
		return nil
	}
	<-r.dispatch(item.ctx, r.applyMiddleware(item.ctx, pipeline, item.record), handlers, nil)
	return nil
}
