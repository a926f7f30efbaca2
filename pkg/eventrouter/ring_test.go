package eventrouter

import (
	"slices"
	"testing"
)

func TestRingEvictsOldest(t *testing.T) {
	r := newRing[int](3)

	for i := 1; i <= 3; i++ {
		if _, ok := r.push(i); ok {
			t.Fatalf("push %d evicted before the ring was full", i)
		}
	}
	for i := 4; i <= 7; i++ {
		evicted, ok := r.push(i)
		if !ok || evicted != i-3 {
			t.Fatalf("push %d: expected eviction of %d, got %d %v", i, i-3, evicted, ok)
		}
	}

	if got := r.window(10, 0); !slices.Equal(got, []int{5, 6, 7}) {
		t.Errorf("unexpected contents %v", got)
	}
	if last, ok := r.last(); !ok || last != 7 {
		t.Errorf("expected last 7, got %d %v", last, ok)
	}

	r.clear()
	if r.len() != 0 || len(r.window(10, 0)) != 0 {
		t.Error("expected empty ring after clear")
	}
	if _, ok := r.last(); ok {
		t.Error("expected no last element after clear")
	}

	r.push(9)
	if got := r.window(10, 0); !slices.Equal(got, []int{9}) {
		t.Errorf("unexpected contents after reuse %v", got)
	}
}

func TestRingMinimumCapacity(t *testing.T) {
	r := newRing[string](0)
	r.push("a")
	evicted, ok := r.push("b")
	if !ok || evicted != "a" {
		t.Errorf("expected capacity 1 ring to evict a, got %q %v", evicted, ok)
	}
}
