package eventrouter

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// DefaultResponseTimeout bounds EmitAndWait when no timeout is given.
const DefaultResponseTimeout = 5 * time.Second

// ResponseEvent returns the event a responder emits to answer event.
func ResponseEvent(event string) string {
	return event + ":response"
}

type responseWaiter struct {
	requestID string
	ch        chan Record
}

// InReplyTo marks an emission as the answer to the request with the given
// correlation id. See EmitAndWait.
func InReplyTo(requestID string) EmitOption {
	return func(o *emitOptions) {
		o.replyTo = requestID
	}
}

// EmitAndWait emits event and waits for the first accepted emission of
// ResponseEvent(event) that answers it. A response tagged with
// InReplyTo(id) goes to the request with that correlation id; an untagged
// response goes to the oldest waiting request. Responses are delivered to
// ordinary handlers of the response event as well.
//
// A responder typically looks like:
//
//	r.OnFunc("user:lookup", func(ctx context.Context, req eventrouter.Record) error {
//	    user, err := load(ctx, req.Payload)
//	    if err != nil {
//	        return err
//	    }
//	    r.Emit(ctx, eventrouter.ResponseEvent(req.Event), user, eventrouter.InReplyTo(req.ID))
//	    return nil
//	})
//
// It returns ErrEmitRejected when the request itself is not accepted, and
// ErrResponseTimeout when nothing answers within timeout
// (DefaultResponseTimeout if timeout <= 0). A done ctx returns ctx.Err().
//
// With queuing enabled, a handler must not call EmitAndWait: the drain
// worker delivers the request only after that handler returns, so the call
// can only time out.
func (r *Router) EmitAndWait(ctx context.Context, event string, payload any, timeout time.Duration, opts ...EmitOption) (Record, error) {
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}

	var o emitOptions
	for _, opt := range opts {
		opt(&o)
	}
	id := o.correlationID
	if id == "" {
		id = newCorrelationID(event, time.Now())
		opts = append(slices.Clip(opts), WithCorrelationID(id))
	}

	respEvent := ResponseEvent(event)
	w := &responseWaiter{requestID: id, ch: make(chan Record, 1)}
	r.mu.Lock()
	r.waiters[respEvent] = append(r.waiters[respEvent], w)
	r.mu.Unlock()

	if _, ok := r.Emit(ctx, event, payload, opts...); !ok {
		r.dropWaiter(respEvent, w)
		return Record{}, fmt.Errorf("event %s: %w", event, ErrEmitRejected)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case resp := <-w.ch:
		return resp, nil
	case <-timer.C:
		err = fmt.Errorf("event %s after %s: %w", event, timeout, ErrResponseTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.dropWaiter(respEvent, w)
	select {
	case resp := <-w.ch:
		return resp, nil
	default:
		return Record{}, err
	}
}

// EmitToModule emits "<module>:<event>", the name used for events addressed
// to a single module.
func (r *Router) EmitToModule(ctx context.Context, module, event string, payload any, opts ...EmitOption) (string, bool) {
	return r.Emit(ctx, module+":"+event, payload, opts...)
}

// resolveWaiterLocked hands rec to the request it answers, if one is
// waiting. The waiter channel is buffered, so this never blocks.
func (r *Router) resolveWaiterLocked(rec Record, replyTo string) {
	ws := r.waiters[rec.Event]
	if len(ws) == 0 {
		return
	}
	i := 0
	if replyTo != "" {
		if i = slices.IndexFunc(ws, func(w *responseWaiter) bool { return w.requestID == replyTo }); i < 0 {
			return
		}
	}
	w := ws[i]
	r.setWaitersLocked(rec.Event, slices.Delete(ws, i, i+1))
	w.ch <- rec
}

func (r *Router) dropWaiter(respEvent string, w *responseWaiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.waiters[respEvent]
	if i := slices.Index(ws, w); i >= 0 {
		r.setWaitersLocked(respEvent, slices.Delete(ws, i, i+1))
	}
}

func (r *Router) setWaitersLocked(respEvent string, ws []*responseWaiter) {
	if len(ws) == 0 {
		delete(r.waiters, respEvent)
		return
	}
	r.waiters[respEvent] = ws
}
