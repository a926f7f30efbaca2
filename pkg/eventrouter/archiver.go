package eventrouter

import (
	"context"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// maxArchiveBacklog bounds the evicted records waiting for the archive.
const maxArchiveBacklog = 4096

// Archiver receives history records as they are evicted from the ring.
// Records arrive in eviction order from a single background goroutine.
// Archive errors are logged and otherwise ignored.
type Archiver interface {
	Append(ctx context.Context, rec Record) error
}

// archiveLocked queues an evicted record for the archive worker and starts
// the worker if it is idle. It reports false when the backlog is full and
// the record was discarded.
func (r *Router) archiveLocked(rec Record) bool {
	if r.archive == nil {
		return true
	}
	if len(r.backlog) >= maxArchiveBacklog {
		return false
	}
	r.backlog = append(r.backlog, rec)
	if !r.archiving {
		r.archiving = true
		r.inflight.Add(1)
		go r.runArchive()
	}
	return true
}

// runArchive appends backlog records until the backlog is empty. Only one
// runs at a time, which keeps the archive in eviction order.
func (r *Router) runArchive() {
	defer r.inflight.Done()
	for {
		r.mu.Lock()
		batch := r.backlog
		r.backlog = nil
		if len(batch) == 0 {
			r.archiving = false
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		for _, rec := range batch {
			if err := r.archive.Append(context.Background(), rec); err != nil {
				observability.LogArchiveError(r.logger, "append", err)
			}
		}
	}
}
