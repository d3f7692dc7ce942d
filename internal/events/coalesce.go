package events

import (
	"context"

	"github.com/roach88/aural/internal/a11y"
)

// Reduce applies coalescing and then debouncing to a raw batch in arrival
// order. It is exposed so tests and the scenario harness can run the policy
// without a Queue.
func Reduce(ctx context.Context, raw []Event, opts Options) ([]Event, Stats) {
	stats := Stats{Drained: len(raw)}
	if len(raw) == 0 {
		return nil, stats
	}

	coalesced := coalesce(raw)
	stats.Coalesced = len(raw) - len(coalesced)

	out := coalesced
	if opts.DebounceWindow > 0 {
		out = debounce(ctx, coalesced, opts)
	}
	stats.Debounced = len(coalesced) - len(out)
	stats.Emitted = len(out)
	return out, stats
}

// runKey identifies an open coalescing run.
type runKey struct {
	node a11y.Handle
	kind Kind
}

// coalesce collapses per-node runs of a coalescible kind. Value and caret
// runs on one node interleave freely; any other kind on that node closes
// both. The survivor takes the latest member's position.
func coalesce(raw []Event) []Event {
	out := make([]Event, 0, len(raw))
	dead := make([]bool, 0, len(raw))
	open := make(map[runKey]int, len(raw))

	for _, ev := range raw {
		if !ev.Kind.coalescible() {
			for _, k := range coalescibleKinds {
				delete(open, runKey{ev.Node, k})
			}
			out = append(out, ev)
			dead = append(dead, false)
			continue
		}

		key := runKey{ev.Node, ev.Kind}
		if j, ok := open[key]; ok {
			dead[j] = true
			ev.Merged += out[j].Merged + 1
		}
		open[key] = len(out)
		out = append(out, ev)
		dead = append(dead, false)
	}
	return compact(out, dead)
}

// group is an open debounce group.
type group struct {
	root    a11y.Handle
	members map[a11y.Handle]bool
	idx     int // current position of the merged event in out
	closed  bool
}

func debounce(ctx context.Context, in []Event, opts Options) []Event {
	contains := opts.Contains
	if contains == nil {
		contains = func(_ context.Context, outer, inner a11y.Handle) bool {
			return outer == inner
		}
	}

	out := make([]Event, 0, len(in))
	dead := make([]bool, 0, len(in))
	var groups []*group

	for _, ev := range in {
		if ev.Kind != ContentChanged {
			for _, g := range groups {
				if !g.closed && g.members[ev.Node] {
					g.closed = true
				}
			}
			out = append(out, ev)
			dead = append(dead, false)
			continue
		}

		var match *group
		for _, g := range groups {
			if g.closed {
				continue
			}
			prev := out[g.idx]
			if ev.Timestamp.Sub(prev.Timestamp) > opts.DebounceWindow {
				g.closed = true
				continue
			}
			if contains(ctx, g.root, ev.Node) || contains(ctx, ev.Node, g.root) {
				match = g
				break
			}
		}

		if match == nil {
			groups = append(groups, &group{
				root:    ev.Node,
				members: map[a11y.Handle]bool{ev.Node: true},
				idx:     len(out),
			})
			out = append(out, ev)
			dead = append(dead, false)
			continue
		}

		prev := out[match.idx]
		dead[match.idx] = true
		if ev.Node != match.root && contains(ctx, ev.Node, match.root) {
			match.root = ev.Node
		}
		match.members[ev.Node] = true

		merged := ev
		merged.Node = match.root
		merged.Merged += prev.Merged + 1
		match.idx = len(out)
		out = append(out, merged)
		dead = append(dead, false)
	}
	return compact(out, dead)
}

func compact(evs []Event, dead []bool) []Event {
	n := 0
	for i, ev := range evs {
		if dead[i] {
			continue
		}
		evs[n] = ev
		n++
	}
	return evs[:n]
}
