package sim

import (
	"fmt"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/events"
)

// Subscribe implements events.Source.
func (t *Tree) Subscribe(kinds []events.Kind, sink func(events.Event)) (events.Registration, error) {
	if sink == nil {
		return nil, fmt.Errorf("subscribe: nil sink")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	sub := &subscription{id: t.nextSub, kinds: make(map[events.Kind]bool, len(kinds)), sink: sink}
	t.nextSub++
	for _, k := range kinds {
		sub.kinds[k] = true
	}
	t.subs = append(t.subs, sub)
	return &registration{tree: t, id: sub.id}, nil
}

type registration struct {
	tree *Tree
	id   int
}

// Close removes the subscription. Idempotent.
func (r *registration) Close() error {
	t := r.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == r.id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			break
		}
	}
	return nil
}

func (t *Tree) publish(kind events.Kind, id string, caret int) {
	t.mu.Lock()
	var sinks []func(events.Event)
	for _, s := range t.subs {
		if s.kinds[kind] {
			sinks = append(sinks, s.sink)
		}
	}
	now := t.wall.Now()
	t.mu.Unlock()

	ev := events.Event{Kind: kind, Node: Handle(id), Timestamp: now, Caret: caret}
	for _, sink := range sinks {
		sink(ev)
	}
}

// Emit publishes an arbitrary event without changing the tree.
func (t *Tree) Emit(kind events.Kind, id string) {
	t.publish(kind, id, 0)
}

// update applies fn to a live element under the lock.
func (t *Tree) update(id string, fn func(el *element)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.nodes[id]
	if !ok || t.dead {
		return fmt.Errorf("node %q: %w", id, a11y.ErrStale)
	}
	fn(el)
	return nil
}

// SetText replaces a node's text and publishes ContentChanged.
func (t *Tree) SetText(id, text string) error {
	if err := t.update(id, func(el *element) {
		el.snap.Text = text
		el.snap.HasText = true
	}); err != nil {
		return err
	}
	t.publish(events.ContentChanged, id, 0)
	return nil
}

// SetName renames a node and publishes ContentChanged.
func (t *Tree) SetName(id, name string) error {
	if err := t.update(id, func(el *element) { el.snap.Name = name }); err != nil {
		return err
	}
	t.publish(events.ContentChanged, id, 0)
	return nil
}

// SetValue changes a node's value and publishes ValueChanged.
func (t *Tree) SetValue(id, value string) error {
	if err := t.update(id, func(el *element) { el.snap.Value = value }); err != nil {
		return err
	}
	t.publish(events.ValueChanged, id, 0)
	return nil
}

// SetStates replaces a node's state flags and publishes StatesChanged.
func (t *Tree) SetStates(id string, names []string) error {
	states, err := a11y.ParseStates(names)
	if err != nil {
		return err
	}
	if err := t.update(id, func(el *element) {
		focused := el.snap.States & a11y.StateFocused
		el.snap.States = states&^a11y.StateFocused | focused
	}); err != nil {
		return err
	}
	t.publish(events.StatesChanged, id, 0)
	return nil
}

// Focus moves keyboard focus to id and publishes FocusChanged.
func (t *Tree) Focus(id string) error {
	t.mu.Lock()
	el, ok := t.nodes[id]
	if !ok || t.dead {
		t.mu.Unlock()
		return fmt.Errorf("focus %q: %w", id, a11y.ErrStale)
	}
	if prev, ok := t.nodes[t.focused]; ok {
		prev.snap.States &^= a11y.StateFocused
	}
	el.snap.States |= a11y.StateFocused
	t.focused = id
	t.mu.Unlock()

	t.publish(events.FocusChanged, id, 0)
	return nil
}

// MoveCaret sets the caret offset in a text node and publishes CaretMoved.
func (t *Tree) MoveCaret(id string, offset int) error {
	if err := t.update(id, func(el *element) { el.snap.Caret = offset }); err != nil {
		return err
	}
	t.publish(events.CaretMoved, id, offset)
	return nil
}

// Insert adds a subtree under parent at index (appended when out of range)
// and publishes ObjectCreated for the new subtree root.
func (t *Tree) Insert(parent string, index int, spec NodeSpec) error {
	t.mu.Lock()
	p, ok := t.nodes[parent]
	if !ok || t.dead {
		t.mu.Unlock()
		return fmt.Errorf("insert under %q: %w", parent, a11y.ErrStale)
	}
	if err := t.add(parent, spec); err != nil {
		t.mu.Unlock()
		return err
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, "")
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = spec.ID
	t.mu.Unlock()

	t.publish(events.ObjectCreated, spec.ID, 0)
	return nil
}

// Remove deletes a subtree. It publishes ObjectDestroyed for the removed
// root, then ContentChanged on its former parent.
func (t *Tree) Remove(id string) error {
	t.mu.Lock()
	el, ok := t.nodes[id]
	if !ok || t.dead {
		t.mu.Unlock()
		return fmt.Errorf("remove %q: %w", id, a11y.ErrStale)
	}
	parent := el.parent
	if p, ok := t.nodes[parent]; ok {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	t.drop(id)
	t.mu.Unlock()

	t.publish(events.ObjectDestroyed, id, 0)
	if parent != "" {
		t.publish(events.ContentChanged, parent, 0)
	}
	return nil
}

func (t *Tree) drop(id string) {
	el, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, c := range el.children {
		t.drop(c)
	}
	delete(t.nodes, id)
	if t.focused == id {
		t.focused = ""
	}
}

// Block makes every call touching id hang until Unblock or Kill.
func (t *Tree) Block(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.hung[id]; !ok {
		t.hung[id] = make(chan struct{})
	}
}

// Unblock releases calls hung on id.
func (t *Tree) Unblock(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.hung[id]; ok {
		close(ch)
		delete(t.hung, id)
	}
}

// Kill simulates the target process exiting: hung calls are released and
// every handle becomes stale.
func (t *Tree) Kill() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dead = true
	for id, ch := range t.hung {
		close(ch)
		delete(t.hung, id)
	}
}
