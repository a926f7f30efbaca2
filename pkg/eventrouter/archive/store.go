// Package archive keeps records evicted from a router's history and periodic
// statistics snapshots for later audit.
//
// A Store satisfies eventrouter.Archiver, so it can be passed straight to
// eventrouter.WithArchive:
//
//	store, err := archive.NewSQLiteStore("./events.db")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	router := eventrouter.New(cfg, eventrouter.WithArchive(store))
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
)

// Store persists archived records and stats snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append archives a record. Records are listed back in append order.
	Append(ctx context.Context, rec eventrouter.Record) error

	// List returns archived records matching f, oldest first.
	// Returns an empty slice (not error) when nothing matches.
	List(ctx context.Context, f Filter) ([]eventrouter.Record, error)

	// Count returns the number of archived records.
	Count(ctx context.Context) (int, error)

	// SaveSnapshot stores a stats snapshot.
	SaveSnapshot(ctx context.Context, snap Snapshot) error

	// Snapshots returns up to limit snapshots, newest first.
	// A limit of zero or less returns all of them.
	Snapshots(ctx context.Context, limit int) ([]Snapshot, error)

	// Close releases any resources (connections, files).
	Close() error
}

var _ eventrouter.Archiver = Store(nil)

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Event        string
	SourceModule string
	Since        time.Time // inclusive
	Until        time.Time // exclusive
	Limit        int
}

func (f Filter) match(rec eventrouter.Record) bool {
	if f.Event != "" && rec.Event != f.Event {
		return false
	}
	if f.SourceModule != "" && rec.SourceModule != f.SourceModule {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !rec.Timestamp.Before(f.Until) {
		return false
	}
	return true
}

// Snapshot is a point-in-time copy of router statistics.
type Snapshot struct {
	TakenAt time.Time
	Data    []byte // JSON-encoded eventrouter.Stats
}

// Sentinel errors for archive operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("archive store closed")
)
