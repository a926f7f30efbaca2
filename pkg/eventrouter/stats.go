package eventrouter

import (
	"slices"
	"strings"
	"time"
)

// Health statuses reported by Health.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Stats is a point-in-time copy of the router's counters.
type Stats struct {
	Performance PerformanceMetrics     `json:"performance"`
	Queue       QueueStats             `json:"queue"`
	Events      EventStats             `json:"events"`
	Modules     map[string]ModuleStats `json:"modules"`
	Routes      RouteStats             `json:"routes"`
}

// PerformanceMetrics counts emissions and failures.
type PerformanceMetrics struct {
	TotalEvents int64      `json:"totalEvents"`
	LastEventAt *time.Time `json:"lastEventAt"`
	Errors      int64      `json:"errors"`
}

// QueueStats are the delivery queue's running totals.
type QueueStats struct {
	TotalQueued    int64 `json:"totalQueued"`
	TotalProcessed int64 `json:"totalProcessed"`
	TotalDropped   int64 `json:"totalDropped"`
	CurrentSize    int   `json:"currentSize"`
}

// EventStats describes recorded emissions. Total is the number of records
// currently held in the history, not the number ever emitted.
type EventStats struct {
	Total         int              `json:"total"`
	ByType        map[string]int64 `json:"byType"`
	LastEmittedAt *time.Time       `json:"lastEmittedAt"`
}

// ModuleStats aggregates the emissions of one source module.
type ModuleStats struct {
	EventsEmitted int64     `json:"eventsEmitted"`
	LastActivity  time.Time `json:"lastActivity"`
	EventTypes    []string  `json:"eventTypes"`
}

// RouteStats counts registered handlers per event name.
type RouteStats struct {
	Total   int            `json:"total"`
	ByEvent map[string]int `json:"byEvent"`
}

// Health is the router's health snapshot.
type Health struct {
	Status      string             `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
	Queue       QueueHealth        `json:"queue"`
	Performance PerformanceMetrics `json:"performance"`
}

// QueueHealth describes the delivery queue's load.
type QueueHealth struct {
	Size       int  `json:"size"`
	MaxSize    int  `json:"maxSize"`
	Processing bool `json:"processing"`
}

// EventCategories groups event names by their namespace prefix.
type EventCategories struct {
	Auth    []string `json:"auth"`
	User    []string `json:"user"`
	Task    []string `json:"task"`
	Project []string `json:"project"`
	System  []string `json:"system"`
}

// Stats returns a copy of all counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byType := make(map[string]int64, r.counters.Len())
	for _, name := range r.counters.Keys() {
		if n, ok := r.counters.Peek(name); ok {
			byType[name] = n
		}
	}

	modules := make(map[string]ModuleStats, r.modules.Len())
	for _, name := range r.modules.Keys() {
		if ms, ok := r.modules.Peek(name); ok {
			modules[name] = ms.snapshot()
		}
	}

	routes := RouteStats{ByEvent: make(map[string]int, len(r.handlers))}
	for name, hs := range r.handlers {
		if len(hs) > 0 {
			routes.ByEvent[name] = len(hs)
		}
	}
	routes.Total = len(routes.ByEvent)

	perf := r.perfLocked()
	return Stats{
		Performance: perf,
		Queue:       r.queueStatsLocked(),
		Events: EventStats{
			Total:         r.history.len(),
			ByType:        byType,
			LastEmittedAt: perf.LastEventAt,
		},
		Modules: modules,
		Routes:  routes,
	}
}

// QueueStats returns the queue totals alongside the performance counters.
func (r *Router) QueueStats() (QueueStats, PerformanceMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queueStatsLocked(), r.perfLocked()
}

func (r *Router) perfLocked() PerformanceMetrics {
	pm := PerformanceMetrics{
		TotalEvents: r.perf.totalEvents,
		Errors:      r.perf.errors,
	}
	if !r.perf.lastEventAt.IsZero() {
		t := r.perf.lastEventAt
		pm.LastEventAt = &t
	}
	return pm
}

func (r *Router) queueStatsLocked() QueueStats {
	return QueueStats{
		TotalQueued:    r.qstats.totalQueued,
		TotalProcessed: r.qstats.totalProcessed,
		TotalDropped:   r.qstats.totalDropped,
		CurrentSize:    len(r.queue),
	}
}

func (ms *moduleStats) snapshot() ModuleStats {
	types := make([]string, 0, len(ms.eventTypes))
	for t := range ms.eventTypes {
		types = append(types, t)
	}
	slices.Sort(types)
	return ModuleStats{
		EventsEmitted: ms.eventsEmitted,
		LastActivity:  ms.lastActivity,
		EventTypes:    types,
	}
}

// History returns up to limit records, skipping the offset most recent
// ones, in emission order. Negative arguments are treated as zero.
func (r *Router) History(limit, offset int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.window(limit, offset)
}

// HistoryLen returns the number of records currently held.
func (r *Router) HistoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.len()
}

// ModuleStats returns the stats for a source module. The second result is
// false for modules that have not emitted since the last reset.
func (r *Router) ModuleStats(name string) (ModuleStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.modules.Peek(name)
	if !ok {
		return ModuleStats{}, false
	}
	return ms.snapshot(), true
}

// EventTypes returns the counted event names, sorted, and grouped by
// namespace. Names without a ':' are system events.
func (r *Router) EventTypes() ([]string, EventCategories) {
	r.mu.Lock()
	names := r.counters.Keys()
	r.mu.Unlock()

	slices.Sort(names)
	cats := EventCategories{
		Auth:    []string{},
		User:    []string{},
		Task:    []string{},
		Project: []string{},
		System:  []string{},
	}
	for _, name := range names {
		switch {
		case strings.HasPrefix(name, "auth:"):
			cats.Auth = append(cats.Auth, name)
		case strings.HasPrefix(name, "user:"):
			cats.User = append(cats.User, name)
		case strings.HasPrefix(name, "task:"):
			cats.Task = append(cats.Task, name)
		case strings.HasPrefix(name, "project:"):
			cats.Project = append(cats.Project, name)
		case !strings.Contains(name, ":"):
			cats.System = append(cats.System, name)
		}
	}
	return names, cats
}

// Health reports StatusDegraded when queuing is enabled and the queue holds
// at least 80% of MaxQueueSize events.
func (r *Router) Health() Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.queue)
	status := StatusHealthy
	if r.cfg.EnableQueuing && size*5 >= r.cfg.MaxQueueSize*4 {
		status = StatusDegraded
	}
	return Health{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Queue: QueueHealth{
			Size:       size,
			MaxSize:    r.cfg.MaxQueueSize,
			Processing: r.draining,
		},
		Performance: r.perfLocked(),
	}
}

// ClearHistory empties the history ring. Counters are left untouched.
func (r *Router) ClearHistory() {
	r.mu.Lock()
	r.history.clear()
	r.mu.Unlock()

	r.logger.Info("event history cleared")
}

// ResetStats zeroes every counter and forgets module stats. The history,
// the queue contents and the failed-delivery log are left untouched.
func (r *Router) ResetStats() {
	r.mu.Lock()
	r.counters.Purge()
	r.modules.Purge()
	r.perf = perfCounters{}
	r.qstats = queueCounters{}
	r.mu.Unlock()

	r.logger.Info("event router statistics reset")
}
