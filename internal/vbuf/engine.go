// Package vbuf projects a document subtree into a flat, navigable text
// buffer and keeps it current as the tree changes.
//
// The projection is a depth-first walk. Each text-bearing element emits one
// run; block elements close with a "\n" break run and table cells with " ".
// Invisible and unnamed decorative elements emit nothing, presentation
// elements are transparent. Runs are contiguous and their rune offsets are
// strictly increasing.
//
// A content change re-projects only the changed subtree, splices the new
// runs in at the same position and recomputes offsets from the splice point.
// The returned TextDiff is the minimal changed character range: identical
// runs are trimmed first, then identical characters.
package vbuf

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/ids"
)

const (
	// DefaultMaxNodes bounds one projection.
	DefaultMaxNodes = 20000

	// DefaultMaxDepth bounds nesting.
	DefaultMaxDepth = 256
)

// Reader is the part of the object model the engine needs.
// *a11y.Model satisfies it.
type Reader interface {
	ReadProperties(ctx context.Context, h a11y.Handle) (a11y.Snapshot, error)
	Children(ctx context.Context, h a11y.Handle) ([]a11y.Handle, error)
	Parent(ctx context.Context, h a11y.Handle) (a11y.Handle, error)
}

// Options configures an Engine.
type Options struct {
	MaxNodes int
	MaxDepth int
	IDs      ids.Generator
}

// Engine builds and patches buffers.
type Engine struct {
	reader Reader
	opts   Options
}

// NewEngine creates an engine reading through r.
func NewEngine(r Reader, opts Options) *Engine {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.IDs == nil {
		opts.IDs = ids.UUIDv7{}
	}
	return &Engine{reader: r, opts: opts}
}

// projection is the result of walking one subtree.
type projection struct {
	root  *vnode
	runs  []Run
	nodes []*vnode
}

// walker carries per-projection state.
type walker struct {
	ctx     context.Context
	reader  Reader
	budget  int
	depth   int
	visited map[a11y.Handle]bool
	out     projection
}

// Build projects the subtree rooted at root into a new buffer.
func (e *Engine) Build(ctx context.Context, root a11y.Handle) (*Buffer, error) {
	w := e.walker(ctx)
	v, err := w.project(root, nil, 0)
	if err != nil {
		if a11y.IsStale(err) {
			return nil, detached(root, "document root is gone", err)
		}
		return nil, err
	}

	b := &Buffer{
		id:    e.opts.IDs.Generate(),
		root:  v,
		runs:  w.out.runs,
		index: make(map[a11y.Handle]*vnode, len(w.out.nodes)),
	}
	for _, n := range w.out.nodes {
		b.index[n.handle] = n
	}
	b.reindex(0)

	slog.Debug("buffer built",
		"buffer", b.id,
		"root", root.String(),
		"nodes", len(b.index),
		"runs", len(b.runs),
		"length", b.length,
	)
	return b, nil
}

func (e *Engine) walker(ctx context.Context) *walker {
	return &walker{
		ctx:     ctx,
		reader:  e.reader,
		budget:  e.opts.MaxNodes,
		depth:   e.opts.MaxDepth,
		visited: make(map[a11y.Handle]bool),
	}
}

// project walks h. Errors reading h itself are returned; unreadable
// descendants are skipped.
func (w *walker) project(h a11y.Handle, parent *vnode, depth int) (*vnode, error) {
	if w.visited[h] {
		return nil, errCycle
	}
	w.visited[h] = true
	w.budget--

	snap, err := w.reader.ReadProperties(w.ctx, h)
	if err != nil {
		return nil, err
	}

	v := &vnode{handle: h, snap: snap, parent: parent}
	w.out.nodes = append(w.out.nodes, v)

	if snap.States.Has(a11y.StateInvisible) || isDecorative(snap) {
		return v, nil
	}

	first := len(w.out.runs)
	if text, ok := ownText(snap); ok {
		v.own = true
		w.out.runs = append(w.out.runs, Run{Node: h, Kind: RunText, Text: text})
	}

	if depth < w.depth {
		kids, err := w.reader.Children(w.ctx, h)
		if err != nil && !a11y.IsStale(err) {
			return nil, err
		}
		for _, k := range kids {
			if w.budget <= 0 {
				slog.Warn("buffer node budget exhausted", "root", h.String())
				break
			}
			child, err := w.project(k, v, depth+1)
			if err != nil {
				if a11y.IsStale(err) || errors.Is(err, errCycle) {
					continue
				}
				return nil, err
			}
			v.children = append(v.children, child)
		}
	}

	if v.wantBreak(w.out.runs[first:]) {
		v.brk = true
		w.out.runs = append(w.out.runs, breakRun(v))
	}
	v.span = len(w.out.runs) - first
	return v, nil
}

var errCycle = errors.New("cycle in accessibility tree")

// ownText returns the text an element contributes itself.
func ownText(s a11y.Snapshot) (string, bool) {
	var text string
	switch {
	case s.Role == a11y.RolePresentation:
		return "", false
	case s.HasText:
		text = s.Text
	case s.ChildCount == 0:
		text = label(s)
	}
	text = norm.NFC.String(text)
	if text == "" {
		return "", false
	}
	return text, true
}

// label is the linear-text rendering of a leaf without a text interface.
func label(s a11y.Snapshot) string {
	if s.Role.IsFormField() && s.Value != "" {
		return strings.TrimSpace(s.Name + " " + s.Value)
	}
	return s.Name
}

func isDecorative(s a11y.Snapshot) bool {
	return s.Role == a11y.RoleImage && s.Name == ""
}

// wantBreak decides whether v closes with a break, given the runs its
// subtree produced so far (excluding any existing break of v).
func (v *vnode) wantBreak(runs []Run) bool {
	if len(runs) == 0 {
		return false
	}
	last := runs[len(runs)-1]
	switch {
	case v.snap.Role == a11y.RoleCell:
		return last.Kind != RunBreak
	case v.snap.Role.IsBlock():
		return last.Kind != RunBreak || last.Text != "\n"
	}
	return false
}

func breakRun(v *vnode) Run {
	text := "\n"
	if v.snap.Role == a11y.RoleCell {
		text = " "
	}
	return Run{Node: v.handle, Kind: RunBreak, Text: text}
}
