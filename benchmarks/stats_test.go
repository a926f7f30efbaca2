package benchmarks

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
)

// fullRouter has a full history and many tracked event names and modules.
func fullRouter(b *testing.B) *eventrouter.Router {
	r := newRouter(b, eventrouter.Config{EnableQueuing: false}, 0)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		r.Emit(ctx, "event:"+strconv.Itoa(i%100), nil,
			eventrouter.WithSourceModule("module-"+strconv.Itoa(i%20)))
	}
	return r
}

// BenchmarkHistory_Page reads one page of a full history.
func BenchmarkHistory_Page(b *testing.B) {
	r := fullRouter(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.History(50, 100)
	}
}

// BenchmarkStats copies all counters.
func BenchmarkStats(b *testing.B) {
	r := fullRouter(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Stats()
	}
}

// BenchmarkStats_JSON measures what the stats endpoint serializes.
func BenchmarkStats_JSON(b *testing.B) {
	r := fullRouter(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(r.Stats())
	}
}

// BenchmarkEventTypes sorts and categorizes tracked names.
func BenchmarkEventTypes(b *testing.B) {
	r := fullRouter(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.EventTypes()
	}
}
