package vbuf

import (
	"fmt"
	"strings"

	"github.com/roach88/aural/internal/a11y"
)

// MarkerKind classifies structural boundaries for semantic navigation.
type MarkerKind int

const (
	MarkerAny MarkerKind = iota
	MarkerHeading
	MarkerList
	MarkerTable
	MarkerLandmark
	MarkerLink
	MarkerFormField
)

var markerNames = map[MarkerKind]string{
	MarkerAny:       "any",
	MarkerHeading:   "heading",
	MarkerList:      "list",
	MarkerTable:     "table",
	MarkerLandmark:  "landmark",
	MarkerLink:      "link",
	MarkerFormField: "formfield",
}

func (k MarkerKind) String() string {
	if n, ok := markerNames[k]; ok {
		return n
	}
	return fmt.Sprintf("marker(%d)", int(k))
}

// ParseMarkerKind converts a marker name back to a MarkerKind.
func ParseMarkerKind(s string) (MarkerKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range markerNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown marker kind %q", s)
}

// Marker is a zero-width structural annotation at the start of the marked
// element's text.
type Marker struct {
	Kind   MarkerKind
	Node   a11y.Handle
	Offset int
	Level  int    // heading level
	Label  string // landmark kind, else the element name
}

func markerKind(s a11y.Snapshot) MarkerKind {
	switch {
	case s.Role == a11y.RoleHeading:
		return MarkerHeading
	case s.Role == a11y.RoleList:
		return MarkerList
	case s.Role == a11y.RoleTable:
		return MarkerTable
	case s.Role == a11y.RoleLandmark:
		return MarkerLandmark
	case s.Role == a11y.RoleLink:
		return MarkerLink
	case s.Role.IsFormField():
		return MarkerFormField
	}
	return MarkerAny
}

// Markers lists every marker in document order. Elements without text
// carry no marker.
func (b *Buffer) Markers() []Marker {
	var out []Marker
	var walk func(v *vnode, first int)
	walk = func(v *vnode, first int) {
		if k := markerKind(v.snap); k != MarkerAny && v.span > 0 {
			m := Marker{
				Kind:   k,
				Node:   v.handle,
				Offset: b.runs[first].Start,
				Level:  v.snap.Level,
				Label:  v.snap.Name,
			}
			if k == MarkerLandmark && v.snap.Landmark != "" {
				m.Label = v.snap.Landmark
			}
			out = append(out, m)
		}
		i := first
		if v.own {
			i++
		}
		for _, c := range v.children {
			walk(c, i)
			i += c.span
		}
	}
	walk(b.root, 0)
	return out
}

func (m Marker) matches(kind MarkerKind, label string) bool {
	if kind != MarkerAny && m.Kind != kind {
		return false
	}
	return label == "" || strings.EqualFold(m.Label, label)
}

// Position is a review position. Node disambiguates markers sharing
// Offset: when it owns a marker there, the search continues from that
// marker in document order rather than skipping the whole offset.
type Position struct {
	Offset int
	Node   a11y.Handle
}

// At returns a position on no particular node.
func At(offset int) Position { return Position{Offset: offset} }

// index returns the document-order index of the marker pos sits on, or -1.
func (p Position) index(ms []Marker) int {
	if p.Node.IsZero() {
		return -1
	}
	for i, m := range ms {
		if m.Offset == p.Offset && m.Node == p.Node {
			return i
		}
	}
	return -1
}

// NextMarker returns the first marker after from in document order. kind
// MarkerAny matches every kind; an empty label matches every label.
func (b *Buffer) NextMarker(from Position, kind MarkerKind, label string) (Marker, error) {
	ms := b.Markers()
	cur := from.index(ms)
	for i, m := range ms {
		after := m.Offset > from.Offset || (cur >= 0 && m.Offset == from.Offset && i > cur)
		if after && m.matches(kind, label) {
			return m, nil
		}
	}
	return Marker{}, notFound(a11y.Handle{}, fmt.Sprintf("no %s after offset %d", kind, from.Offset))
}

// PrevMarker returns the last marker before from in document order.
func (b *Buffer) PrevMarker(from Position, kind MarkerKind, label string) (Marker, error) {
	ms := b.Markers()
	cur := from.index(ms)
	for i := len(ms) - 1; i >= 0; i-- {
		before := ms[i].Offset < from.Offset || (cur >= 0 && ms[i].Offset == from.Offset && i < cur)
		if before && ms[i].matches(kind, label) {
			return ms[i], nil
		}
	}
	return Marker{}, notFound(a11y.Handle{}, fmt.Sprintf("no %s before offset %d", kind, from.Offset))
}
