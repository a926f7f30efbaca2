/*
Package eventrouter is an in-process event bus for decoupling application
modules such as auth, tasks and messaging.

# Overview

Producers call Emit with an event name and an opaque payload. Consumers
register Handlers with On. Every emission is recorded in a bounded history
ring and in per-event and per-module counters, then delivered either
immediately or through a bounded FIFO queue drained by a single worker.

	r := eventrouter.New(eventrouter.DefaultConfig(),
	    eventrouter.WithLogger(logger),
	)
	defer r.Close(context.Background())

	r.On("task:created", eventrouter.HandlerFunc(func(ctx context.Context, rec eventrouter.Record) error {
	    return notify(ctx, rec.Payload)
	}))

	id, ok := r.Emit(ctx, "task:created", task,
	    eventrouter.WithSourceModule("tasks"),
	)

# Delivery

With queuing disabled each emission is dispatched on the caller's goroutine:
one goroutine per handler. Each handler goroutine is launched once the
previous one has entered its handler, so handlers start in priority order,
then registration order, and then run concurrently. With queuing
enabled (the default) the emission is appended to the queue and the drain
worker delivers queued events strictly in enqueue order, waiting for each
event's handlers before moving on. When the queue is full the new emission is
dropped and Emit reports ok == false.

Handler failures, including panics, are isolated: they are logged, counted,
and kept in a bounded failed-delivery log, but never reach the producer or
sibling handlers. WithWaitForAll makes Emit block until every handler for the
emission has settled.

Middleware added with Use or WithMiddleware rewrites each record before its
handlers see it. A failing middleware is logged and skipped.

# Request and response

EmitAndWait emits a request and blocks until a handler answers by emitting
ResponseEvent(name), tagged with InReplyTo(request.ID), or until the timeout.
EmitToModule addresses "<module>:<event>".

# Introspection

Stats, History, ModuleStats, Health and Failures expose the router's
counters. ClearHistory and ResetStats are independent operator actions.
The httpapi subpackage serves them over HTTP.
*/
package eventrouter
