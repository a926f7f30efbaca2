package eventrouter

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Handler processes emissions of the events it is registered for.
// A returned error, like a panic, is recorded as a failed delivery.
type Handler interface {
	Handle(ctx context.Context, rec Record) error
}

// HandlerFunc is a function that implements Handler.
type HandlerFunc func(ctx context.Context, rec Record) error

// Handle calls f(ctx, rec).
func (f HandlerFunc) Handle(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

type namedHandler struct {
	name string
	Handler
}

func (h namedHandler) Name() string { return h.name }

// Named attaches a name to h, used in logs and failed-delivery entries.
func Named(name string, h Handler) Handler {
	return namedHandler{name: name, Handler: h}
}

// handlerName extracts a name for a handler (for logging).
func handlerName(h Handler) string {
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// safeHandle runs h, converting a panic into a *PanicError.
func safeHandle(ctx context.Context, h Handler, rec Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return h.Handle(ctx, rec)
}
