package sim

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aural/internal/a11y"
)

// NodeSpec is the YAML form of a simulated element and its subtree.
type NodeSpec struct {
	ID          string     `yaml:"id"`
	Role        string     `yaml:"role"`
	Name        string     `yaml:"name,omitempty"`
	Value       string     `yaml:"value,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Text        *string    `yaml:"text,omitempty"`
	States      []string   `yaml:"states,omitempty"`
	Level       int        `yaml:"level,omitempty"`
	Landmark    string     `yaml:"landmark,omitempty"`
	Row         *int       `yaml:"row,omitempty"`
	Col         *int       `yaml:"col,omitempty"`
	Bounds      []int      `yaml:"bounds,omitempty"`
	Children    []NodeSpec `yaml:"children,omitempty"`
}

// ParseSpec decodes a tree document.
func ParseSpec(r io.Reader) (NodeSpec, error) {
	var spec NodeSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return NodeSpec{}, fmt.Errorf("decode tree: %w", err)
	}
	return spec, nil
}

// LoadFile reads a tree document from disk and builds a Tree.
func LoadFile(path string, opts ...Option) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tree: %w", err)
	}
	defer f.Close()

	spec, err := ParseSpec(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(spec, opts...)
}

// snapshot converts the spec's own properties (children excluded).
func (s NodeSpec) snapshot() (a11y.Snapshot, error) {
	role, err := a11y.ParseRole(s.Role)
	if err != nil {
		return a11y.Snapshot{}, fmt.Errorf("node %q: %w", s.ID, err)
	}
	states, err := a11y.ParseStates(s.States)
	if err != nil {
		return a11y.Snapshot{}, fmt.Errorf("node %q: %w", s.ID, err)
	}

	snap := a11y.Snapshot{
		Role:        role,
		Name:        s.Name,
		Value:       s.Value,
		Description: s.Description,
		States:      states,
		Caret:       -1,
		Level:       s.Level,
		Landmark:    s.Landmark,
		Row:         -1,
		Col:         -1,
	}
	if s.Text != nil {
		snap.Text = *s.Text
		snap.HasText = true
	}
	if s.Row != nil {
		snap.Row = *s.Row
	}
	if s.Col != nil {
		snap.Col = *s.Col
	}
	switch len(s.Bounds) {
	case 0:
	case 4:
		snap.Bounds = a11y.Rect{X: s.Bounds[0], Y: s.Bounds[1], W: s.Bounds[2], H: s.Bounds[3]}
	default:
		return a11y.Snapshot{}, fmt.Errorf("node %q: bounds needs 4 values, got %d", s.ID, len(s.Bounds))
	}
	return snap, nil
}
