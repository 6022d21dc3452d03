// Package smooth aggregates a bounded history of optional samples into a single
// stable output.
package smooth

import (
	"errors"

	"github.com/ayusman/handeye/internal/opt"
)

var (
	// ErrInvalidCapacity is returned when a window is configured with a capacity below 1.
	ErrInvalidCapacity = errors.New("window capacity must be positive")
	// ErrNilAggregator is returned when a window is configured without an aggregator.
	ErrNilAggregator = errors.New("window aggregator is nil")
)

// Aggregator reduces the window contents to one output.
//
// When the window filters absent entries, every value passed in is present and
// the slice is never empty. Otherwise the aggregator receives the whole window,
// absent entries included, and must handle them itself.
type Aggregator[T any] func(values []opt.Value[T]) opt.Value[T]

// PresentOnly adapts a function over present samples into an Aggregator.
// Absent entries are skipped; if none remain the result is absent.
func PresentOnly[T any](fn func(samples []T) T) Aggregator[T] {
	return func(values []opt.Value[T]) opt.Value[T] {
		samples := opt.Present(values)
		if len(samples) == 0 {
			return opt.None[T]()
		}
		return opt.Some(fn(samples))
	}
}

// Window is a FIFO history of at most Capacity entries plus the last computed
// aggregate. Capacity, aggregator and filtering are fixed at construction.
// A Window is not safe for concurrent use; its owner serializes access.
type Window[T any] struct {
	capacity     int
	aggregate    Aggregator[T]
	filterAbsent bool

	entries []opt.Value[T]
	latest  opt.Value[T]
}

// New creates a Window holding up to capacity entries.
func New[T any](capacity int, aggregate Aggregator[T], filterAbsent bool) (*Window[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if aggregate == nil {
		return nil, ErrNilAggregator
	}

	return &Window[T]{
		capacity:     capacity,
		aggregate:    aggregate,
		filterAbsent: filterAbsent,
		entries:      make([]opt.Value[T], 0, capacity),
	}, nil
}

// Push appends v, evicting the oldest entry when the window is full, and
// returns the recomputed aggregate.
func (w *Window[T]) Push(v opt.Value[T]) opt.Value[T] {
	if len(w.entries) >= w.capacity {
		// Shift left by one, dropping the oldest entry
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:w.capacity-1]
	}
	w.entries = append(w.entries, v)

	w.latest = w.compute()
	return w.latest
}

func (w *Window[T]) compute() opt.Value[T] {
	if !w.filterAbsent {
		return w.aggregate(w.Entries())
	}

	present := make([]opt.Value[T], 0, len(w.entries))
	for _, e := range w.entries {
		if e.IsSome() {
			present = append(present, e)
		}
	}
	if len(present) == 0 {
		return opt.None[T]()
	}
	return w.aggregate(present)
}

// Latest returns the aggregate computed by the most recent Push, or an absent
// value if nothing has been pushed.
func (w *Window[T]) Latest() opt.Value[T] {
	return w.latest
}

// Entries returns a copy of the history, oldest first.
func (w *Window[T]) Entries() []opt.Value[T] {
	out := make([]opt.Value[T], len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of entries currently held.
func (w *Window[T]) Len() int {
	return len(w.entries)
}

// Capacity returns the maximum number of entries.
func (w *Window[T]) Capacity() int {
	return w.capacity
}

// FilterAbsent reports whether absent entries are dropped before aggregation.
func (w *Window[T]) FilterAbsent() bool {
	return w.filterAbsent
}

// Reset clears the history and the last aggregate.
func (w *Window[T]) Reset() {
	w.entries = w.entries[:0]
	w.latest = opt.None[T]()
}
