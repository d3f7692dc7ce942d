// Package mailbox provides the thread-safe hand-off used at every boundary
// where producer goroutines meet the single consumer loop.
//
// A Box is an unbounded FIFO guarded by a mutex. Availability is signalled on
// a buffered channel of size 1, so any number of Put calls between two
// consumer wake-ups collapse into a single signal. The consumer selects on
// Wait() together with its context and then drains with TryTake or TakeAll.
//
// Put never blocks on the consumer. Backpressure is the consumer's job
// (coalescing in the event queue, bounded queues in the output sequencer).
package mailbox

import "sync"

// Box is a multi-producer, single-consumer FIFO.
type Box[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

// New creates an empty box with room for capHint items before growing.
func New[T any](capHint int) *Box[T] {
	if capHint < 0 {
		capHint = 0
	}
	return &Box[T]{
		items:  make([]T, 0, capHint),
		signal: make(chan struct{}, 1),
	}
}

// Put appends an item. Safe from any goroutine.
// Returns false if the box is closed.
func (b *Box[T]) Put(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	b.items = append(b.items, item)

	// Non-blocking: a pending signal already covers this item.
	select {
	case b.signal <- struct{}{}:
	default:
	}

	return true
}

// TryTake removes and returns the front item without blocking.
func (b *Box[T]) TryTake() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if len(b.items) == 0 {
		return zero, false
	}

	item := b.items[0]
	// Clear the slot so the backing array does not pin the item.
	b.items[0] = zero
	if len(b.items) == 1 {
		b.items = b.items[:0]
	} else {
		b.items = b.items[1:]
	}
	return item, true
}

// TakeAll removes and returns every pending item in arrival order.
// Returns nil when the box is empty.
func (b *Box[T]) TakeAll() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}
	out := make([]T, len(b.items))
	copy(out, b.items)

	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.items = b.items[:0]
	return out
}

// Wait returns the availability signal. The channel is closed by Close,
// which makes a select on it fire immediately from then on.
func (b *Box[T]) Wait() <-chan struct{} {
	return b.signal
}

// Len returns the number of pending items.
func (b *Box[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Close rejects further Puts and wakes any waiter. Idempotent.
// Items already queued stay available to TryTake and TakeAll.
func (b *Box[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.signal)
}

// Closed reports whether Close has been called.
func (b *Box[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
