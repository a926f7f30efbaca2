package eventrouter

import (
	"slices"
	"sort"
)

type listener struct {
	handler  Handler
	priority int
}

// ListenerOption configures a single registration.
type ListenerOption func(*listener)

// WithPriority orders a handler among the handlers of its event. Higher
// priorities start first; equal priorities keep registration order. The
// default priority is 0.
func WithPriority(p int) ListenerOption {
	return func(l *listener) {
		l.priority = p
	}
}

// insertListener adds l to ls, which is sorted by descending priority,
// after every listener of the same or higher priority.
func insertListener(ls []listener, l listener) []listener {
	i := sort.Search(len(ls), func(i int) bool { return ls[i].priority < l.priority })
	return slices.Insert(ls, i, l)
}
