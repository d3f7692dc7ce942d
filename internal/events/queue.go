package events

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/clock"
	"github.com/roach88/aural/internal/mailbox"
)

// DefaultDebounceWindow is the content-changed burst window.
const DefaultDebounceWindow = 30 * time.Millisecond

// Relation reports whether outer contains inner (inclusive). It runs on the
// consumer goroutine during Drain.
type Relation func(ctx context.Context, outer, inner a11y.Handle) bool

// Options configures a Queue.
type Options struct {
	// DebounceWindow bounds the gap between merged content-changed events.
	// Zero or negative disables debouncing.
	DebounceWindow time.Duration

	// Contains decides subtree overlap. Nil means handle equality only.
	Contains Relation

	// Wall stamps events that arrive without a timestamp.
	Wall clock.Wall
}

// DefaultOptions returns the default queue policy.
func DefaultOptions() Options {
	return Options{DebounceWindow: DefaultDebounceWindow}
}

// Stats describes one Drain.
type Stats struct {
	Drained   int // raw events taken from the queue
	Coalesced int // removed by value/caret coalescing
	Debounced int // removed by content debouncing
	Emitted   int // events returned
}

// Queue is the multi-producer, single-consumer event queue.
//
// Post is the only method safe to call from producers. Everything else
// belongs to the consumer goroutine.
type Queue struct {
	// mu keeps Seq order equal to box order across producers.
	mu   sync.Mutex
	box  *mailbox.Box[Event]
	seq  *clock.Sequence
	opts Options
}

// NewQueue creates an empty queue.
func NewQueue(opts Options) *Queue {
	if opts.Wall == nil {
		opts.Wall = clock.System{}
	}
	return &Queue{
		box:  mailbox.New[Event](256),
		seq:  clock.NewSequence(),
		opts: opts,
	}
}

// Post enqueues an event without blocking. It stamps the arrival sequence
// and, if unset, the timestamp. Returns false once the queue is closed.
func (q *Queue) Post(ev Event) bool {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = q.opts.Wall.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	ev.Seq = q.seq.Next()
	return q.box.Put(ev)
}

// Drain takes every pending event and returns the coalesced batch.
func (q *Queue) Drain(ctx context.Context) []Event {
	out, _ := q.DrainStats(ctx)
	return out
}

// DrainStats is Drain plus counters for metrics.
func (q *Queue) DrainStats(ctx context.Context) ([]Event, Stats) {
	raw := q.box.TakeAll()
	return Reduce(ctx, raw, q.opts)
}

// Wait signals that events may be pending.
func (q *Queue) Wait() <-chan struct{} {
	return q.box.Wait()
}

// Len returns the number of pending raw events.
func (q *Queue) Len() int {
	return q.box.Len()
}

// Close stops accepting events. Pending events stay drainable.
func (q *Queue) Close() {
	q.box.Close()
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	return q.box.Closed()
}
