package a11y

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// DefaultCallTimeout bounds each native call. Events arrive faster than
	// this in storms, so the budget must stay well under human reaction time.
	DefaultCallTimeout = 80 * time.Millisecond

	// DefaultMaxInflight caps abandoned calls still running on a hung target.
	DefaultMaxInflight = 16

	// maxAncestorWalk bounds parent walks against cyclic provider trees.
	maxAncestorWalk = 256
)

// Model resolves and navigates elements through a Backend.
//
// Thread-safety: Model is owned by the consumer goroutine. Only the
// in-flight counter is shared with call goroutines, and it is atomic.
type Model struct {
	backend     Backend
	timeout     time.Duration
	maxInflight int64
	inflight    atomic.Int64
	onTimeout   func(op string)

	cache map[Handle]Snapshot
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCallTimeout sets the per-call budget.
func WithCallTimeout(d time.Duration) ModelOption {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithMaxInflight sets how many abandoned calls may be outstanding before
// new calls fail fast.
func WithMaxInflight(n int) ModelOption {
	return func(m *Model) {
		if n > 0 {
			m.maxInflight = int64(n)
		}
	}
}

// WithTimeoutHook registers a callback invoked on every timed-out call.
func WithTimeoutHook(fn func(op string)) ModelOption {
	return func(m *Model) {
		m.onTimeout = fn
	}
}

// NewModel wraps a backend.
func NewModel(b Backend, opts ...ModelOption) *Model {
	m := &Model{
		backend:     b,
		timeout:     DefaultCallTimeout,
		maxInflight: DefaultMaxInflight,
		cache:       make(map[Handle]Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend returns the wrapped backend.
func (m *Model) Backend() Backend {
	return m.backend
}

// Inflight returns the number of native calls still running.
func (m *Model) Inflight() int {
	return int(m.inflight.Load())
}

// bounded runs fn on its own goroutine and waits at most the call budget.
// An abandoned call keeps running; its result is discarded.
func bounded[T any](ctx context.Context, m *Model, op string, h Handle, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if m.inflight.Load() >= m.maxInflight {
		m.timedOut(op, h)
		return zero, &TimeoutError{Op: op, Handle: h}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Add(-1)
		v, err := fn(callCtx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		m.timedOut(op, h)
		return zero, &TimeoutError{Op: op, Handle: h, After: m.timeout}
	}
}

func (m *Model) timedOut(op string, h Handle) {
	slog.Warn("native call timed out",
		"op", op,
		"handle", h.String(),
		"inflight", m.inflight.Load(),
	)
	if m.onTimeout != nil {
		m.onTimeout(op)
	}
}

// Resolve turns a handle (typically an event's originating element) into a
// live Node. Returns ErrNotFound for the zero handle and ErrStale when the
// element has gone away or did not answer in time.
func (m *Model) Resolve(ctx context.Context, h Handle) (Node, error) {
	if h.IsZero() {
		return Node{}, ErrNotFound
	}
	snap, err := m.ReadProperties(ctx, h)
	if err != nil {
		return Node{}, err
	}
	return Node{Handle: h, Snapshot: snap}, nil
}

// ReadProperties reads a fresh snapshot and refreshes the cache.
func (m *Model) ReadProperties(ctx context.Context, h Handle) (Snapshot, error) {
	snap, err := bounded(ctx, m, "snapshot", h, func(ctx context.Context) (Snapshot, error) {
		return m.backend.Snapshot(ctx, h)
	})
	if err != nil {
		if IsStale(err) {
			delete(m.cache, h)
		}
		return Snapshot{}, err
	}
	snap.Handle = h
	m.cache[h] = snap
	return snap, nil
}

// Parent returns the parent handle.
func (m *Model) Parent(ctx context.Context, h Handle) (Handle, error) {
	return bounded(ctx, m, "parent", h, func(ctx context.Context) (Handle, error) {
		return m.backend.Parent(ctx, h)
	})
}

// Children returns the child handles in document order.
func (m *Model) Children(ctx context.Context, h Handle) ([]Handle, error) {
	return bounded(ctx, m, "children", h, func(ctx context.Context) ([]Handle, error) {
		return m.backend.Children(ctx, h)
	})
}

// Activate invokes the element's default action.
func (m *Model) Activate(ctx context.Context, h Handle) error {
	act, ok := m.backend.(Activator)
	if !ok {
		return ErrUnsupported
	}
	_, err := bounded(ctx, m, "activate", h, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, act.DoDefaultAction(ctx, h)
	})
	return err
}

// Cached returns the last snapshot read for h, which may be stale.
func (m *Model) Cached(h Handle) (Snapshot, bool) {
	s, ok := m.cache[h]
	return s, ok
}

// Forget drops the cached snapshot for h.
func (m *Model) Forget(h Handle) {
	delete(m.cache, h)
}

// CacheLen returns the number of cached snapshots.
func (m *Model) CacheLen() int {
	return len(m.cache)
}

// IsAncestor reports whether outer is inner or one of its ancestors.
// Any failure along the walk answers false.
func (m *Model) IsAncestor(ctx context.Context, outer, inner Handle) bool {
	cur := inner
	for i := 0; i < maxAncestorWalk; i++ {
		if cur == outer {
			return true
		}
		p, err := m.Parent(ctx, cur)
		if err != nil {
			return false
		}
		cur = p
	}
	return false
}

// AncestorWithRole walks up from h (inclusive) to the nearest element with
// the given role.
func (m *Model) AncestorWithRole(ctx context.Context, h Handle, role Role) (Node, error) {
	cur := h
	for i := 0; i < maxAncestorWalk; i++ {
		snap, err := m.ReadProperties(ctx, cur)
		if err != nil {
			return Node{}, err
		}
		if snap.Role == role {
			return Node{Handle: cur, Snapshot: snap}, nil
		}
		p, err := m.Parent(ctx, cur)
		if err != nil {
			if errors.Is(err, ErrBoundary) {
				return Node{}, ErrNotFound
			}
			return Node{}, err
		}
		cur = p
	}
	return Node{}, ErrNotFound
}
