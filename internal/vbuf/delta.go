package vbuf

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/aural/internal/a11y"
)

const maxAnchorWalk = 256

// TextDiff describes how the buffer text changed. Offsets are runes.
type TextDiff struct {
	Offset int
	OldLen int
	NewLen int
	Old    string
	New    string
}

// Empty reports whether nothing changed.
func (d TextDiff) Empty() bool {
	return d.OldLen == 0 && d.NewLen == 0
}

// ApplyDelta re-projects the subtree containing h and splices it into b.
//
// When h is not in the buffer (a newly created element), the nearest live
// ancestor that is indexed is re-projected instead. Returns a
// DETACHED_SUBTREE error when no such ancestor exists or the subtree root
// itself is gone; the buffer is left unchanged in that case.
func (e *Engine) ApplyDelta(ctx context.Context, b *Buffer, h a11y.Handle) (TextDiff, error) {
	target, err := e.anchor(ctx, b, h)
	if err != nil {
		return TextDiff{}, err
	}

	w := e.walker(ctx)
	w.budget = max(e.opts.MaxNodes-(len(b.index)-countNodes(target)), 1)
	depth := 0
	for a := target.parent; a != nil; a = a.parent {
		w.visited[a.handle] = true
		depth++
	}

	parent := target.parent
	nv, err := w.project(target.handle, parent, depth)
	if err != nil {
		if a11y.IsStale(err) {
			return TextDiff{}, detached(target.handle, "subtree root is gone", err)
		}
		return TextDiff{}, err
	}

	start := b.runStart(target)
	old := b.runs
	runs := make([]Run, 0, len(old)-target.span+len(w.out.runs)+1)
	runs = append(runs, old[:start]...)
	runs = append(runs, w.out.runs...)
	runs = append(runs, old[start+target.span:]...)
	b.runs = runs

	if parent == nil {
		b.root = nv
	} else {
		i := slices.Index(parent.children, target)
		parent.children[i] = nv
	}
	b.unindex(target)
	for _, n := range w.out.nodes {
		b.index[n.handle] = n
	}
	for a := parent; a != nil; a = a.parent {
		a.span += nv.span - target.span
	}
	b.fixBreaks(parent)
	b.reindex(start)

	diff := diffRuns(old, b.runs, start)
	slog.Debug("buffer delta applied",
		"buffer", b.id,
		"node", h.String(),
		"subtree", target.handle.String(),
		"offset", diff.Offset,
		"old_len", diff.OldLen,
		"new_len", diff.NewLen,
	)
	return diff, nil
}

// anchor finds the indexed vnode whose subtree covers h.
func (e *Engine) anchor(ctx context.Context, b *Buffer, h a11y.Handle) (*vnode, error) {
	if v, ok := b.index[h]; ok {
		return v, nil
	}
	cur := h
	for i := 0; i < maxAnchorWalk; i++ {
		p, err := e.reader.Parent(ctx, cur)
		if err != nil {
			return nil, detached(h, "changed node has no live ancestor in buffer", err)
		}
		if v, ok := b.index[p]; ok {
			return v, nil
		}
		cur = p
	}
	return nil, detached(h, "ancestor walk exceeded limit", nil)
}

func (b *Buffer) unindex(v *vnode) {
	if b.index[v.handle] == v {
		delete(b.index, v.handle)
	}
	for _, c := range v.children {
		b.unindex(c)
	}
}

func countNodes(v *vnode) int {
	n := 1
	for _, c := range v.children {
		n += countNodes(c)
	}
	return n
}

// fixBreaks re-evaluates the closing break of a and its ancestors after a
// splice changed what their subtrees end with.
func (b *Buffer) fixBreaks(a *vnode) {
	for ; a != nil; a = a.parent {
		first := b.runStart(a)
		body := first + a.span
		if a.brk {
			body--
		}
		want := a.wantBreak(b.runs[first:body])

		var d int
		switch {
		case want && !a.brk:
			b.runs = slices.Insert(b.runs, body, breakRun(a))
			a.brk = true
			d = 1
		case !want && a.brk:
			b.runs = slices.Delete(b.runs, body, body+1)
			a.brk = false
			d = -1
		default:
			continue
		}
		for x := a; x != nil; x = x.parent {
			x.span += d
		}
	}
}

// diffRuns compares the old and new run lists. Runs before from are known
// to be identical.
func diffRuns(old, cur []Run, from int) TextDiff {
	i := from
	for i < len(old) && i < len(cur) && old[i].same(cur[i]) {
		i++
	}
	jo, jn := len(old), len(cur)
	for jo > i && jn > i && old[jo-1].same(cur[jn-1]) {
		jo--
		jn--
	}

	base := 0
	switch {
	case i < len(old):
		base = old[i].Start
	case len(old) > 0:
		base = old[len(old)-1].End
	}
	if i == jo && i == jn {
		return TextDiff{Offset: base}
	}

	o := []rune(joinRuns(old[i:jo]))
	n := []rune(joinRuns(cur[i:jn]))

	p := 0
	for p < len(o) && p < len(n) && o[p] == n[p] {
		p++
	}
	s := 0
	for s < len(o)-p && s < len(n)-p && o[len(o)-1-s] == n[len(n)-1-s] {
		s++
	}

	return TextDiff{
		Offset: base + p,
		OldLen: len(o) - p - s,
		NewLen: len(n) - p - s,
		Old:    string(o[p : len(o)-s]),
		New:    string(n[p : len(n)-s]),
	}
}

func joinRuns(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}
