package eventrouter

import (
	"errors"
	"fmt"
)

var (
	// ErrRouterClosed is returned by Close when the router was already closed.
	ErrRouterClosed = errors.New("event router closed")

	// ErrEmitRejected is returned by EmitAndWait when the request emission
	// is dropped or the router is closed.
	ErrEmitRejected = errors.New("emission rejected")

	// ErrResponseTimeout is returned by EmitAndWait when no response
	// arrives in time.
	ErrResponseTimeout = errors.New("event response timeout")

	errArchiveBacklogFull = errors.New("archive backlog full, record discarded")
)

// HandlerError describes a failed handler invocation.
type HandlerError struct {
	Event         string
	CorrelationID string
	Handler       string
	Err           error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("event %s (%s): handler %s: %v", e.Event, e.CorrelationID, e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// DispatchError is a fault raised by the drain worker itself while
// delivering a queued event, as opposed to a handler failure.
type DispatchError struct {
	Event         string
	CorrelationID string
	Value         any
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s (%s): %v", e.Event, e.CorrelationID, e.Value)
}
