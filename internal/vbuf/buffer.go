package vbuf

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/roach88/aural/internal/a11y"
)

// RunKind distinguishes content from structural breaks.
type RunKind int

const (
	// RunText is text owned by one element.
	RunText RunKind = iota
	// RunBreak closes a block ("\n") or a table cell (" ").
	RunBreak
)

func (k RunKind) String() string {
	if k == RunBreak {
		return "break"
	}
	return "text"
}

// Run is a piece of buffer text attributed to one element. Start and End
// are rune offsets, End exclusive.
type Run struct {
	Node  a11y.Handle
	Kind  RunKind
	Text  string
	Start int
	End   int
}

// Len returns the run length in runes.
func (r Run) Len() int { return r.End - r.Start }

// same reports run identity: same element, same kind and same text.
func (r Run) same(o Run) bool {
	return r.Node == o.Node && r.Kind == o.Kind && r.Text == o.Text
}

// Range is a half-open rune range.
type Range struct {
	Start, End int
}

// Contains reports whether off lies in [Start, End).
func (r Range) Contains(off int) bool { return off >= r.Start && off < r.End }

// Len returns End-Start.
func (r Range) Len() int { return r.End - r.Start }

// vnode mirrors one element of the projected subtree.
type vnode struct {
	handle   a11y.Handle
	snap     a11y.Snapshot
	parent   *vnode
	children []*vnode

	// own is set when the element contributes its own text run, which is
	// always the first run of its subtree.
	own bool
	// brk is set when the element closes with a break run, always the last
	// run of its subtree.
	brk bool
	// span is the number of runs in the subtree.
	span int
}

// Buffer is a linear text projection of a document subtree.
//
// Thread-safety: a Buffer is owned by the consumer goroutine. Only the
// Engine mutates it.
type Buffer struct {
	id     string
	root   *vnode
	runs   []Run
	index  map[a11y.Handle]*vnode
	length int
}

// ID returns the buffer identifier.
func (b *Buffer) ID() string { return b.id }

// Root returns the document root handle.
func (b *Buffer) Root() a11y.Handle { return b.root.handle }

// Len returns the text length in runes.
func (b *Buffer) Len() int { return b.length }

// NodeCount returns the number of indexed elements.
func (b *Buffer) NodeCount() int { return len(b.index) }

// Runs returns a copy of the run list.
func (b *Buffer) Runs() []Run {
	out := make([]Run, len(b.runs))
	copy(out, b.runs)
	return out
}

// Text returns the whole buffer text.
func (b *Buffer) Text() string {
	var sb strings.Builder
	for _, r := range b.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Contains reports whether h is indexed.
func (b *Buffer) Contains(h a11y.Handle) bool {
	_, ok := b.index[h]
	return ok
}

// Snapshot returns the properties recorded for h when it was projected.
func (b *Buffer) Snapshot(h a11y.Handle) (a11y.Snapshot, bool) {
	v, ok := b.index[h]
	if !ok {
		return a11y.Snapshot{}, false
	}
	return v.snap, true
}

// Locate returns the run covering offset.
func (b *Buffer) Locate(offset int) (Run, error) {
	if offset < 0 || offset >= b.length {
		return Run{}, outOfRange(offset, b.length)
	}
	i := sort.Search(len(b.runs), func(i int) bool { return b.runs[i].End > offset })
	return b.runs[i], nil
}

// FindNode returns the text range of h's subtree. Elements that contribute
// no text get an empty range at their position.
func (b *Buffer) FindNode(h a11y.Handle) (Range, error) {
	v, ok := b.index[h]
	if !ok {
		return Range{}, notFound(h, "node not in buffer")
	}
	return b.rangeOf(v), nil
}

// ParentOf returns the buffer parent of h.
func (b *Buffer) ParentOf(h a11y.Handle) (a11y.Handle, error) {
	v, ok := b.index[h]
	if !ok || v.parent == nil {
		return a11y.Handle{}, notFound(h, "no parent in buffer")
	}
	return v.parent.handle, nil
}

// Slice returns the text in [start, end), clamped to the buffer.
func (b *Buffer) Slice(start, end int) string {
	start = max(start, 0)
	end = min(end, b.length)
	if start >= end {
		return ""
	}
	var sb strings.Builder
	i := sort.Search(len(b.runs), func(i int) bool { return b.runs[i].End > start })
	for ; i < len(b.runs) && b.runs[i].Start < end; i++ {
		r := b.runs[i]
		lo := max(start, r.Start) - r.Start
		hi := min(end, r.End) - r.Start
		sb.WriteString(runeSlice(r.Text, lo, hi))
	}
	return sb.String()
}

// LineAt returns the line containing offset, without its newline.
func (b *Buffer) LineAt(offset int) (Range, string, error) {
	if offset < 0 || offset >= b.length {
		return Range{}, "", outOfRange(offset, b.length)
	}
	text := []rune(b.Text())

	start := offset
	if text[start] == '\n' {
		// A newline belongs to the line it ends.
		start--
	}
	for start >= 0 && text[start] != '\n' {
		start--
	}
	start++

	end := offset
	for end < len(text) && text[end] != '\n' {
		end++
	}
	return Range{Start: start, End: end}, string(text[start:end]), nil
}

// runStart returns the index of v's first run.
func (b *Buffer) runStart(v *vnode) int {
	if v.parent == nil {
		return 0
	}
	i := b.runStart(v.parent)
	if v.parent.own {
		i++
	}
	for _, sib := range v.parent.children {
		if sib == v {
			break
		}
		i += sib.span
	}
	return i
}

func (b *Buffer) rangeOf(v *vnode) Range {
	first := b.runStart(v)
	if v.span == 0 {
		pos := b.length
		if first < len(b.runs) {
			pos = b.runs[first].Start
		}
		return Range{Start: pos, End: pos}
	}
	return Range{Start: b.runs[first].Start, End: b.runs[first+v.span-1].End}
}

// reindex recomputes offsets from run index i onward.
func (b *Buffer) reindex(i int) {
	off := 0
	if i > 0 {
		off = b.runs[i-1].End
	}
	for ; i < len(b.runs); i++ {
		n := utf8.RuneCountInString(b.runs[i].Text)
		b.runs[i].Start = off
		b.runs[i].End = off + n
		off += n
	}
	b.length = off
}

func runeSlice(s string, lo, hi int) string {
	if lo == 0 && hi >= utf8.RuneCountInString(s) {
		return s
	}
	r := []rune(s)
	return string(r[lo:hi])
}
