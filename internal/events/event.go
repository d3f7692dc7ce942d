// Package events implements the ingestion side of the pipeline: a queue that
// accepts accessibility notifications from any goroutine and hands the
// consumer an ordered, coalesced batch.
//
// # Coalescing
//
// Value-changed and caret-moved events on the same node collapse to the
// latest of each kind, even when the two kinds interleave while typing. An
// event of any other kind on that node closes both runs, so no survivor
// ever moves across it.
//
// # Debouncing
//
// Content-changed events that arrive within the debounce window on
// overlapping subtrees (same node, or one an ancestor of the other) collapse
// into a single event on the outermost subtree. The merged event takes the
// position of the latest member. A group stops absorbing once an event of
// another kind touches one of its nodes.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/aural/internal/a11y"
)

// Kind identifies an accessibility notification.
type Kind int

const (
	FocusChanged Kind = iota + 1
	CaretMoved
	ValueChanged
	ContentChanged
	ObjectCreated
	ObjectDestroyed
	StatesChanged
)

var kindNames = map[Kind]string{
	FocusChanged:    "focus",
	CaretMoved:      "caret",
	ValueChanged:    "value",
	ContentChanged:  "content",
	ObjectCreated:   "created",
	ObjectDestroyed: "destroyed",
	StatesChanged:   "states",
}

// AllKinds lists every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{FocusChanged, CaretMoved, ValueChanged, ContentChanged,
		ObjectCreated, ObjectDestroyed, StatesChanged}
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

var coalescibleKinds = []Kind{ValueChanged, CaretMoved}

// coalescible reports whether only the latest of a run matters.
func (k Kind) coalescible() bool {
	return k == ValueChanged || k == CaretMoved
}

// Event is one accessibility notification.
//
// Node is a weak reference: the element may be gone by the time the
// consumer dispatches the event.
type Event struct {
	Kind      Kind
	Node      a11y.Handle
	Timestamp time.Time

	// Seq is the arrival order stamped by Queue.Post.
	Seq int64

	// Caret is the new caret offset for CaretMoved, else 0.
	Caret int

	// Merged counts the events folded into this one.
	Merged int
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%s#%d", e.Kind, e.Node, e.Seq)
}
