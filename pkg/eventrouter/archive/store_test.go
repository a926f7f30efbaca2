package archive_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/archive"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) archive.Store

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func record(id, event, module string, offset time.Duration) eventrouter.Record {
	return eventrouter.Record{
		ID:           id,
		Event:        event,
		Payload:      map[string]any{"id": id},
		SourceModule: module,
		Timestamp:    base.Add(offset),
	}
}

func seed(t *testing.T, store archive.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, record("r1", "user:login", "auth", 0)))
	require.NoError(t, store.Append(ctx, record("r2", "task:created", "tasks", time.Second)))
	require.NoError(t, store.Append(ctx, record("r3", "user:login", "auth", 2*time.Second)))
	require.NoError(t, store.Append(ctx, record("r4", "user:logout", "auth", 3*time.Second)))
}

func ids(recs []eventrouter.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Append_and_List", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		seed(t, store)

		recs, err := store.List(ctx, archive.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids(recs))

		first := recs[0]
		assert.Equal(t, "user:login", first.Event)
		assert.Equal(t, "auth", first.SourceModule)
		assert.True(t, first.Timestamp.Equal(base))
		assert.Equal(t, map[string]any{"id": "r1"}, first.Payload)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		recs, err := store.List(ctx, archive.Filter{Event: "nothing"})
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run(name+"/List_Filters", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		seed(t, store)

		tests := []struct {
			name   string
			filter archive.Filter
			want   []string
		}{
			{"by event", archive.Filter{Event: "user:login"}, []string{"r1", "r3"}},
			{"by module", archive.Filter{SourceModule: "auth"}, []string{"r1", "r3", "r4"}},
			{"since inclusive", archive.Filter{Since: base.Add(2 * time.Second)}, []string{"r3", "r4"}},
			{"until exclusive", archive.Filter{Until: base.Add(2 * time.Second)}, []string{"r1", "r2"}},
			{"limit", archive.Filter{SourceModule: "auth", Limit: 2}, []string{"r1", "r3"}},
			{"combined", archive.Filter{Event: "user:login", Since: base.Add(time.Second)}, []string{"r3"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				recs, err := store.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(recs))
			})
		}
	})

	t.Run(name+"/Snapshots_NewestFirst", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 0; i < 3; i++ {
			snap := archive.Snapshot{
				TakenAt: base.Add(time.Duration(i) * time.Minute),
				Data:    []byte(fmt.Sprintf(`{"n":%d}`, i)),
			}
			require.NoError(t, store.SaveSnapshot(ctx, snap))
		}

		all, err := store.Snapshots(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, `{"n":2}`, string(all[0].Data))
		assert.True(t, all[0].TakenAt.Equal(base.Add(2*time.Minute)))

		latest, err := store.Snapshots(ctx, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, `{"n":2}`, string(latest[0].Data))
	})

	t.Run(name+"/Concurrent_Append", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		var wg sync.WaitGroup
		for g := 0; g < 10; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					id := fmt.Sprintf("g%d-%d", g, i)
					assert.NoError(t, store.Append(ctx, record(id, "load", "bench", 0)))
				}
			}(g)
		}
		wg.Wait()

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.Append(ctx, record("x", "e", "m", 0)), archive.ErrStoreClosed)
		_, err := store.List(ctx, archive.Filter{})
		assert.ErrorIs(t, err, archive.ErrStoreClosed)
		_, err = store.Count(ctx)
		assert.ErrorIs(t, err, archive.ErrStoreClosed)
		assert.ErrorIs(t, store.SaveSnapshot(ctx, archive.Snapshot{}), archive.ErrStoreClosed)
		_, err = store.Snapshots(ctx, 0)
		assert.ErrorIs(t, err, archive.ErrStoreClosed)

		assert.NoError(t, store.Close())
	})
}

// TestMemoryStore runs contract tests against MemoryStore.
func TestMemoryStore(t *testing.T) {
	factory := func(t *testing.T) archive.Store {
		return archive.NewMemoryStore()
	}
	storeContractTest(t, "MemoryStore", factory)
}

// TestSQLiteStore runs contract tests against SQLiteStore.
func TestSQLiteStore(t *testing.T) {
	factory := func(t *testing.T) archive.Store {
		store, err := archive.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	}
	storeContractTest(t, "SQLiteStore", factory)
}

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	store1, err := archive.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Append(ctx, record("keep", "user:login", "auth", 0)))
	require.NoError(t, store1.Close())

	store2, err := archive.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	recs, err := store2.List(ctx, archive.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids(recs))
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := archive.NewSQLiteStore("/nonexistent/path/events.db")
	assert.Error(t, err)
}

func TestSQLiteStore_UnencodablePayload(t *testing.T) {
	store, err := archive.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rec := record("bad", "e", "m", 0)
	rec.Payload = make(chan int)
	assert.Error(t, store.Append(context.Background(), rec))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_AsRouterArchive(t *testing.T) {
	store, err := archive.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	r := eventrouter.New(
		eventrouter.Config{MaxEventHistory: 2, EnableQueuing: false},
		eventrouter.WithArchive(store),
	)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		r.Emit(ctx, "tick", i, eventrouter.WithCorrelationID(fmt.Sprintf("t%d", i)))
	}
	require.NoError(t, r.Close(ctx))

	recs, err := store.List(ctx, archive.Filter{Event: "tick"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t0", "t1", "t2"}, ids(recs))
	assert.Equal(t, float64(0), recs[0].Payload)
	assert.Equal(t, 2, r.HistoryLen())
}
