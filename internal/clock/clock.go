// Package clock provides the two time sources the pipeline uses: a logical
// sequence for ordering and a wall clock for debounce windows.
package clock

import (
	"sync/atomic"
	"time"
)

// Sequence is a monotonic logical clock.
//
// Every event and every output request is stamped with a strictly increasing
// number from a Sequence, so ordering never depends on wall-clock resolution.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// Event producers call Next from arbitrary goroutines.
type Sequence struct {
	n atomic.Int64
}

// NewSequence creates a sequence starting at 0. The first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last issued number without incrementing.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}

// Wall reports the current time. Tests inject a manual implementation.
type Wall interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }
