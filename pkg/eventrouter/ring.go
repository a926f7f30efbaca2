package eventrouter

// ring is a fixed-capacity FIFO buffer. Pushing onto a full ring evicts the
// oldest element. It is not safe for concurrent use.
type ring[T any] struct {
	buf   []T
	start int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends v and returns the element it evicted, if any.
func (r *ring[T]) push(v T) (evicted T, ok bool) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return evicted, false
	}
	evicted = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return evicted, true
}

func (r *ring[T]) at(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring[T]) len() int {
	return r.size
}

// last returns the newest element.
func (r *ring[T]) last() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.at(r.size - 1), true
}

// window skips the offset newest elements and returns up to limit elements
// before them, oldest first. Negative arguments are treated as zero.
func (r *ring[T]) window(limit, offset int) []T {
	limit = max(limit, 0)
	offset = max(offset, 0)

	end := max(r.size-offset, 0)
	start := max(end-limit, 0)

	out := make([]T, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, r.at(i))
	}
	return out
}

func (r *ring[T]) clear() {
	clear(r.buf)
	r.start, r.size = 0, 0
}
