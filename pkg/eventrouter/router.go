package eventrouter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// Router is an in-process pub/sub dispatcher with bounded history, a bounded
// delivery queue and usage statistics. It is safe for concurrent use.
type Router struct {
	cfg     Config
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	archive Archiver

	mu       sync.Mutex
	history  *ring[Record]
	failures *ring[FailedDelivery]
	counters *lru.Cache[string, int64]
	modules  *lru.Cache[string, *moduleStats]
	perf     perfCounters
	qstats   queueCounters
	queue    []*queuedEvent
	draining bool
	closed   bool

	// handlers, middleware and waiters are guarded by mu as well.
	handlers   map[string][]listener
	middleware []Middleware
	waiters    map[string][]*responseWaiter

	// backlog holds evicted records not yet handed to the archive.
	backlog   []Record
	archiving bool

	// inflight tracks the drain worker, the archive worker and immediate
	// dispatches for Close.
	inflight sync.WaitGroup

	// beforeDeliver, when set, runs in the drain worker ahead of each
	// queued delivery.
	beforeDeliver func(Record)
}

type moduleStats struct {
	eventsEmitted int64
	lastActivity  time.Time
	eventTypes    map[string]struct{}
}

type perfCounters struct {
	totalEvents int64
	lastEventAt time.Time
	errors      int64
}

type queueCounters struct {
	totalQueued    int64
	totalProcessed int64
	totalDropped   int64
}

// New creates a router. Sizes in cfg that are zero or negative use the
// DefaultConfig values; EnableQueuing is taken as given.
func New(cfg Config, opts ...Option) *Router {
	cfg = cfg.withDefaults()

	r := &Router{
		cfg:      cfg,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		handlers: make(map[string][]listener),
		waiters:  make(map[string][]*responseWaiter),
		history:  newRing[Record](cfg.MaxEventHistory),
		failures: newRing[FailedDelivery](cfg.MaxFailedDeliveries),
		counters: mustLRU[int64](cfg.MaxTrackedEvents),
		modules:  mustLRU[*moduleStats](cfg.MaxTrackedModules),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.logger.Info("event router initialized",
		slog.Int("max_event_history", cfg.MaxEventHistory),
		slog.Int("max_queue_size", cfg.MaxQueueSize),
		slog.Bool("enable_queuing", cfg.EnableQueuing),
	)
	return r
}

// mustLRU builds a cache; size is always positive here so creation cannot fail.
func mustLRU[V any](size int) *lru.Cache[string, V] {
	c, err := lru.New[string, V](size)
	if err != nil {
		panic(err)
	}
	return c
}

// Config returns the effective configuration.
func (r *Router) Config() Config {
	return r.cfg
}

// On registers h for eventName. Handlers of an event start in registration
// order unless WithPriority says otherwise. Registering the same handler
// twice results in two invocations per emission. Handlers cannot be removed.
func (r *Router) On(eventName string, h Handler, opts ...ListenerOption) {
	l := listener{handler: h}
	for _, opt := range opts {
		opt(&l)
	}

	r.mu.Lock()
	r.handlers[eventName] = insertListener(r.handlers[eventName], l)
	total := len(r.handlers[eventName])
	r.mu.Unlock()

	observability.LogListenerRegistered(r.logger, eventName, total)
}

// OnFunc registers fn for eventName.
func (r *Router) OnFunc(eventName string, fn func(ctx context.Context, rec Record) error, opts ...ListenerOption) {
	r.On(eventName, HandlerFunc(fn), opts...)
}

// Listeners returns the number of handlers registered for eventName.
func (r *Router) Listeners(eventName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[eventName])
}

// Emit records an emission of eventName and delivers it to the registered
// handlers, immediately or through the queue depending on EnableQueuing.
//
// It returns the emission's correlation id and true when the emission was
// accepted. It returns "" and false when the queue is full or the router is
// closed. A dropped emission is still counted and kept in the history.
//
// With WithWaitForAll(true), Emit blocks until the handlers settle or ctx is
// done. Handlers never observe ctx's cancellation. They receive the record
// as rewritten by the middleware pipeline; the history keeps it as emitted.
func (r *Router) Emit(ctx context.Context, eventName string, payload any, opts ...EmitOption) (string, bool) {
	o := emitOptions{sourceModule: DefaultSourceModule}
	for _, opt := range opts {
		opt(&o)
	}

	now := time.Now()
	rec := Record{
		ID:           o.correlationID,
		Event:        eventName,
		Payload:      payload,
		SourceModule: o.sourceModule,
		Timestamp:    now,
	}
	if rec.ID == "" {
		rec.ID = newCorrelationID(eventName, now)
	}

	ctx, span := r.spans.StartEmitSpan(ctx, eventName, rec.ID)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("emit on closed event router", slog.String("event", eventName))
		r.spans.EndSpanWithError(span, ErrRouterClosed)
		return "", false
	}

	archived := true
	if evicted, ok := r.recordLocked(rec); ok {
		archived = r.archiveLocked(evicted)
	}

	var (
		accepted = true
		done     <-chan struct{}
		hs       []Handler
		pipeline []Middleware
		depth    int
	)
	handlers := len(r.handlers[eventName])
	if r.cfg.EnableQueuing {
		done, depth, accepted = r.enqueueLocked(ctx, rec, o.waitForAll)
	} else if handlers > 0 {
		hs = r.handlersLocked(eventName)
		pipeline = r.middleware
		r.inflight.Add(1)
	}
	if accepted {
		r.resolveWaiterLocked(rec, o.replyTo)
	}
	r.mu.Unlock()

	if hs != nil {
		dctx := context.WithoutCancel(ctx)
		done = r.dispatch(dctx, r.applyMiddleware(dctx, pipeline, rec), hs, r.inflight.Done)
	}

	if !archived {
		observability.LogArchiveError(r.logger, "append", errArchiveBacklogFull)
	}
	r.metrics.RecordEmit(ctx, eventName, accepted)

	if !accepted {
		observability.LogQueueDrop(r.logger, eventName, depth)
		r.spans.AddSpanEvent(ctx, "dropped")
		r.spans.EndSpanWithError(span, nil)
		return "", false
	}

	if r.cfg.EnableQueuing {
		r.metrics.RecordQueueDepth(ctx, depth)
	} else if handlers == 0 {
		observability.LogNoListeners(r.logger, eventName)
	}
	observability.LogEmit(r.logger, eventName, rec.ID, rec.SourceModule, handlers)

	if o.waitForAll && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	r.spans.EndSpanWithError(span, nil)
	return rec.ID, true
}

// recordLocked applies the bookkeeping every emission gets and appends rec
// to the history. It returns the record evicted from the ring, if any.
func (r *Router) recordLocked(rec Record) (Record, bool) {
	r.perf.totalEvents++
	r.perf.lastEventAt = rec.Timestamp

	count, _ := r.counters.Peek(rec.Event)
	r.counters.Add(rec.Event, count+1)

	ms, ok := r.modules.Get(rec.SourceModule)
	if !ok {
		ms = &moduleStats{eventTypes: make(map[string]struct{})}
		r.modules.Add(rec.SourceModule, ms)
	}
	ms.eventsEmitted++
	ms.lastActivity = rec.Timestamp
	ms.eventTypes[rec.Event] = struct{}{}

	return r.history.push(rec)
}

// handlersLocked returns the handlers for eventName in start order.
func (r *Router) handlersLocked(eventName string) []Handler {
	ls := r.handlers[eventName]
	if len(ls) == 0 {
		return nil
	}
	out := make([]Handler, len(ls))
	for i, l := range ls {
		out[i] = l.handler
	}
	return out
}

// Close stops accepting emissions and waits for queued events, running
// handlers and pending archive appends to finish, or for ctx to be done. Calling Close twice returns
// ErrRouterClosed.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRouterClosed
	}
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("event router closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
