// Package sim is an in-memory accessibility backend.
//
// A Tree holds elements built from YAML, answers a11y.Backend queries and
// publishes events to subscribers when mutated. It can also misbehave on
// purpose: Block makes calls on one element hang until Unblock, and Kill
// makes every handle stale, like a target process exiting.
package sim

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/clock"
	"github.com/roach88/aural/internal/events"
)

type element struct {
	snap     a11y.Snapshot
	parent   string
	children []string
}

type subscription struct {
	id    int
	kinds map[events.Kind]bool
	sink  func(events.Event)
}

// Tree is a simulated accessibility tree.
//
// Thread-safety: all methods are safe for concurrent use. Subscriber sinks
// are called without the lock held.
type Tree struct {
	mu      sync.Mutex
	nodes   map[string]*element
	root    string
	focused string
	subs    []*subscription
	nextSub int
	hung    map[string]chan struct{}
	dead    bool
	acts    []string
	wall    clock.Wall
}

// Option configures a Tree.
type Option func(*Tree)

// WithWall sets the clock used to stamp published events.
func WithWall(w clock.Wall) Option {
	return func(t *Tree) { t.wall = w }
}

var (
	_ a11y.Backend   = (*Tree)(nil)
	_ a11y.Activator = (*Tree)(nil)
	_ events.Source  = (*Tree)(nil)
)

// New builds a tree from a spec.
func New(spec NodeSpec, opts ...Option) (*Tree, error) {
	t := &Tree{
		nodes: make(map[string]*element),
		hung:  make(map[string]chan struct{}),
		wall:  clock.System{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.add("", spec); err != nil {
		return nil, err
	}
	t.root = spec.ID
	return t, nil
}

// add inserts spec under parent. Caller holds the lock or owns t.
func (t *Tree) add(parent string, spec NodeSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("node under %q has no id", parent)
	}
	if _, dup := t.nodes[spec.ID]; dup {
		return fmt.Errorf("duplicate node id %q", spec.ID)
	}
	snap, err := spec.snapshot()
	if err != nil {
		return err
	}
	el := &element{snap: snap, parent: parent}
	t.nodes[spec.ID] = el
	if snap.States.Has(a11y.StateFocused) {
		t.focused = spec.ID
	}
	for _, c := range spec.Children {
		if err := t.add(spec.ID, c); err != nil {
			return err
		}
		el.children = append(el.children, c.ID)
	}
	return nil
}

// Handle returns the handle for a node id.
func Handle(id string) a11y.Handle {
	return a11y.Handle{API: a11y.APISimulated, ID: id}
}

// Root returns the root handle.
func (t *Tree) Root() a11y.Handle {
	return Handle(t.root)
}

// Kind implements a11y.Backend.
func (t *Tree) Kind() a11y.APIKind { return a11y.APISimulated }

// gate blocks while id is hung. It deliberately ignores ctx: a hung target
// does not honour cancellation.
func (t *Tree) gate(id string) {
	t.mu.Lock()
	ch := t.hung[id]
	t.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (t *Tree) lookup(h a11y.Handle) (*element, error) {
	if t.dead {
		return nil, a11y.ErrStale
	}
	if h.API != a11y.APISimulated {
		return nil, a11y.ErrNotFound
	}
	el, ok := t.nodes[h.ID]
	if !ok {
		return nil, a11y.ErrStale
	}
	return el, nil
}

// Snapshot implements a11y.Backend.
func (t *Tree) Snapshot(_ context.Context, h a11y.Handle) (a11y.Snapshot, error) {
	t.gate(h.ID)
	t.mu.Lock()
	defer t.mu.Unlock()

	el, err := t.lookup(h)
	if err != nil {
		return a11y.Snapshot{}, err
	}
	snap := el.snap
	snap.ChildCount = len(el.children)
	return snap, nil
}

// Parent implements a11y.Backend.
func (t *Tree) Parent(_ context.Context, h a11y.Handle) (a11y.Handle, error) {
	t.gate(h.ID)
	t.mu.Lock()
	defer t.mu.Unlock()

	el, err := t.lookup(h)
	if err != nil {
		return a11y.Handle{}, err
	}
	if el.parent == "" {
		return a11y.Handle{}, a11y.ErrBoundary
	}
	return Handle(el.parent), nil
}

// Children implements a11y.Backend.
func (t *Tree) Children(_ context.Context, h a11y.Handle) ([]a11y.Handle, error) {
	t.gate(h.ID)
	t.mu.Lock()
	defer t.mu.Unlock()

	el, err := t.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make([]a11y.Handle, len(el.children))
	for i, c := range el.children {
		out[i] = Handle(c)
	}
	return out, nil
}

// DoDefaultAction implements a11y.Activator. Check boxes toggle their
// checked state; every activation is recorded.
func (t *Tree) DoDefaultAction(_ context.Context, h a11y.Handle) error {
	t.gate(h.ID)
	t.mu.Lock()
	el, err := t.lookup(h)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.acts = append(t.acts, h.ID)
	toggled := false
	if el.snap.Role == a11y.RoleCheckBox {
		el.snap.States ^= a11y.StateChecked
		toggled = true
	}
	t.mu.Unlock()

	if toggled {
		t.publish(events.StatesChanged, h.ID, 0)
	}
	return nil
}

// Activations lists the ids whose default action ran, in order.
func (t *Tree) Activations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.acts)
}

// Focused returns the focused node id, or "".
func (t *Tree) Focused() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// Len returns the number of live elements.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}
