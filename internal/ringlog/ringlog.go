package ringlog

import (
	"fmt"
	"time"
)

// Capacities used across the core. Log channels keep the last LogCapacity
// lines; rolling detail and telemetry histories keep the last DetailCapacity
// entries.
const (
	LogCapacity    = 400
	DetailCapacity = 80
)

// Line is a single timestamped log line. The timestamp is stamped on append,
// so ordering is by arrival at the registry rather than by backend origin.
type Line struct {
	When time.Time
	Text string
}

// String renders the line as "[HH:MM:SS] text".
func (l Line) String() string {
	return fmt.Sprintf("[%s] %s", l.When.Format("15:04:05"), l.Text)
}

// Ring is a bounded append-only sequence with oldest-first eviction. The zero
// value is not usable; construct with NewRing. Ring performs no locking of its
// own; owners guard access with their own mutex.
type Ring[T any] struct {
	items []T
	cap   int
}

// NewRing returns an empty ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items: make([]T, 0, capacity),
		cap:   capacity,
	}
}

// Append adds v to the end of the ring, dropping the oldest element when the
// ring is full. Insertion order of the retained suffix is preserved.
func (r *Ring[T]) Append(v T) {
	r.items = append(r.items, v)
	if len(r.items) > r.cap {
		r.items = r.items[len(r.items)-r.cap:]
	}
}

// Items returns a copy of the retained elements, oldest first.
func (r *Ring[T]) Items() []T {
	if len(r.items) == 0 {
		return nil
	}
	dup := make([]T, len(r.items))
	copy(dup, r.items)
	return dup
}

// Len reports the number of retained elements.
func (r *Ring[T]) Len() int {
	return len(r.items)
}

// Cap reports the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return r.cap
}

// Clear empties the ring without changing its capacity.
func (r *Ring[T]) Clear() {
	r.items = r.items[:0]
}
