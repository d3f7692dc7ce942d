package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aural/internal/backend/sim"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/runtime"
)

// Scenario is a scripted run against a simulated tree.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Tree is a tree document path, relative to the scenario file.
	// Exactly one of Tree and Root is set.
	Tree string        `yaml:"tree,omitempty"`
	Root *sim.NodeSpec `yaml:"root,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action in a scenario.
type Step struct {
	Action string `yaml:"action"`

	// Node is the target element of mutations and emit.
	Node string `yaml:"node,omitempty"`

	// Text is the new text, name or value for set_text, set_name and
	// set_value.
	Text *string `yaml:"text,omitempty"`

	States []string `yaml:"states,omitempty"` // set_states
	Offset int      `yaml:"offset,omitempty"` // move_caret

	// Insert places Spec as child Index of Node.
	Index int           `yaml:"index,omitempty"`
	Spec  *sim.NodeSpec `yaml:"spec,omitempty"`

	Kind    string `yaml:"kind,omitempty"`    // emit
	Command string `yaml:"command,omitempty"` // command
}

// Step actions.
const (
	ActFocus     = "focus"
	ActSetText   = "set_text"
	ActSetName   = "set_name"
	ActSetValue  = "set_value"
	ActSetStates = "set_states"
	ActMoveCaret = "move_caret"
	ActInsert    = "insert"
	ActRemove    = "remove"
	ActEmit      = "emit"
	ActBlock     = "block"
	ActUnblock   = "unblock"
	ActKill      = "kill"
	ActCommand   = "command"
)

// String is the step's transcript label.
func (s Step) String() string {
	switch s.Action {
	case ActKill:
		return ActKill
	case ActCommand:
		return ActCommand + " " + s.Command
	case ActEmit:
		return fmt.Sprintf("emit %s %s", s.Kind, s.Node)
	case ActInsert:
		id := ""
		if s.Spec != nil {
			id = s.Spec.ID
		}
		return fmt.Sprintf("insert %s into %s at %d", id, s.Node, s.Index)
	case ActMoveCaret:
		return fmt.Sprintf("move_caret %s %d", s.Node, s.Offset)
	case ActSetStates:
		return fmt.Sprintf("set_states %s [%s]", s.Node, strings.Join(s.States, " "))
	}
	return s.Action + " " + s.Node
}

// Assertion is an expectation checked after the last step.
type Assertion struct {
	Type string `yaml:"type"`

	Texts   []string `yaml:"texts,omitempty"`   // spoken
	Text    string   `yaml:"text,omitempty"`    // spoken_contains, buffer_text
	Event   string   `yaml:"event,omitempty"`   // outcome: "kind node"
	Outcome string   `yaml:"outcome,omitempty"` // outcome
}

// Assertion types.
const (
	// AssertSpoken matches the full utterance sequence.
	AssertSpoken = "spoken"
	// AssertSpokenContains matches one utterance anywhere in the run.
	AssertSpokenContains = "spoken_contains"
	// AssertOutcome matches the outcome of a dispatched event.
	AssertOutcome = "outcome"
	// AssertBufferText matches the final buffer text.
	AssertBufferText = "buffer_text"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected, so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if s.Tree != "" && !filepath.IsAbs(s.Tree) {
		s.Tree = filepath.Join(filepath.Dir(path), s.Tree)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Tree == "") == (s.Root == nil) {
		return fmt.Errorf("exactly one of tree and root is required")
	}
	if s.Tree != "" {
		if _, err := os.Stat(s.Tree); os.IsNotExist(err) {
			return fmt.Errorf("tree file not found: %s", s.Tree)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	switch s.Action {
	case "":
		return fmt.Errorf("action is required")
	case ActKill:
		return nil
	case ActCommand:
		if _, err := runtime.ParseCommand(s.Command); err != nil {
			return fmt.Errorf("command: %w", err)
		}
		return nil
	case ActFocus, ActSetText, ActSetName, ActSetValue, ActSetStates,
		ActMoveCaret, ActInsert, ActRemove, ActEmit, ActBlock, ActUnblock:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}

	if s.Node == "" {
		return fmt.Errorf("%s: node is required", s.Action)
	}
	switch s.Action {
	case ActSetText, ActSetName, ActSetValue:
		if s.Text == nil {
			return fmt.Errorf("%s: text is required", s.Action)
		}
	case ActInsert:
		if s.Spec == nil {
			return fmt.Errorf("insert: spec is required")
		}
	case ActEmit:
		if _, err := events.ParseKind(s.Kind); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
	case ActMoveCaret:
		if s.Offset < 0 {
			return fmt.Errorf("move_caret: offset must be non-negative")
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertSpoken:
		if a.Texts == nil {
			return fmt.Errorf("texts is required for spoken (use [] for silence)")
		}
	case AssertSpokenContains:
		if a.Text == "" {
			return fmt.Errorf("text is required for spoken_contains")
		}
	case AssertOutcome:
		if a.Event == "" || a.Outcome == "" {
			return fmt.Errorf("event and outcome are required for outcome")
		}
	case AssertBufferText:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
