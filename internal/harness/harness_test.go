package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aural/internal/backend/sim"
)

func strptr(s string) *string { return &s }

func pageScenario(steps []Step, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "test",
		Description: "test scenario",
		Tree:        filepath.Join("testdata", "trees", "page.yaml"),
		Steps:       steps,
		Assertions:  assertions,
	}
}

func TestRun_FocusAnnounces(t *testing.T) {
	s := pageScenario(
		[]Step{{Action: ActFocus, Node: "agree"}},
		Assertion{Type: AssertSpoken, Texts: []string{"I agree check box not checked"}},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Transcript, 1)
	assert.Equal(t, "focus agree", result.Transcript[0].Step)
	assert.Equal(t, []string{"focus agree announced"}, result.Transcript[0].Events)
	assert.Equal(t, "Home\nWelcome\nHello\nDetails\nI agree\n", result.Buffer)
}

func TestRun_AttributesOutputToSteps(t *testing.T) {
	s := pageScenario([]Step{
		{Action: ActFocus, Node: "agree"},
		{Action: ActSetText, Node: "t1", Text: strptr("Hello world")},
		{Action: ActSetStates, Node: "agree", States: []string{"focusable", "checked"}},
	}, Assertion{Type: AssertSpokenContains, Text: "world"})

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Transcript, 3)
	assert.Equal(t, []string{"content t1 delta"}, result.Transcript[1].Events)
	assert.Equal(t, []string{"world"}, result.Transcript[1].Spoken)
	assert.Equal(t, "set_states agree [focusable checked]", result.Transcript[2].Step)
	assert.Equal(t, []string{"states agree announced"}, result.Transcript[2].Events)
	assert.Equal(t, []string{"checked"}, result.Transcript[2].Spoken)
}

func TestRun_InlineRoot(t *testing.T) {
	s := &Scenario{
		Name:        "inline",
		Description: "inline tree",
		Root: &sim.NodeSpec{
			ID:   "doc",
			Role: "document",
			Children: []sim.NodeSpec{
				{ID: "p", Role: "paragraph", Children: []sim.NodeSpec{
					{ID: "t", Role: "text", Text: strptr("Only line")},
				}},
			},
		},
		Steps: []Step{{Action: ActMoveCaret, Node: "t", Offset: 2}},
		Assertions: []Assertion{
			// No buffer until focus enters the document.
			{Type: AssertBufferText, Text: ""},
			{Type: AssertSpoken, Texts: []string{"Only line"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	s := pageScenario(
		[]Step{{Action: ActFocus, Node: "home"}},
		Assertion{Type: AssertSpoken, Texts: []string{"Elsewhere"}},
		Assertion{Type: AssertOutcome, Event: "focus home", Outcome: "stale"},
		Assertion{Type: AssertBufferText, Text: "nothing"},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertion 0 (spoken)")
	assert.Contains(t, result.Errors[1], "Actual: focus home announced")
	assert.Contains(t, result.Errors[2], "assertion 2 (buffer_text)")
}

func TestRun_UnknownNodeIsAnError(t *testing.T) {
	s := pageScenario(
		[]Step{{Action: ActRemove, Node: "ghost"}},
		Assertion{Type: AssertBufferText},
	)

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (remove ghost)")
}

func TestRun_MissingTree(t *testing.T) {
	s := pageScenario([]Step{{Action: ActKill}}, Assertion{Type: AssertBufferText})
	s.Tree = filepath.Join("testdata", "trees", "missing.yaml")

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build tree")
}
