package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.Transcript = []Entry{
		{Step: "focus agree", Events: []string{"focus agree announced"}, Spoken: []string{"I agree check box not checked"}},
		{Step: "set_text t1", Events: []string{"content t1 delta"}, Spoken: []string{"world"}},
	}
	r.Buffer = "Hello world\n"
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"spoken match", Assertion{Type: AssertSpoken, Texts: []string{"I agree check box not checked", "world"}}, ""},
		{"spoken order", Assertion{Type: AssertSpoken, Texts: []string{"world", "I agree check box not checked"}}, "Expected:"},
		{"spoken silence", Assertion{Type: AssertSpoken, Texts: []string{}}, "Actual:"},
		{"contains", Assertion{Type: AssertSpokenContains, Text: "world"}, ""},
		{"contains missing", Assertion{Type: AssertSpokenContains, Text: "Hello"}, "not spoken"},
		{"outcome", Assertion{Type: AssertOutcome, Event: "content t1", Outcome: "delta"}, ""},
		{"outcome differs", Assertion{Type: AssertOutcome, Event: "content t1", Outcome: "unchanged"}, "Actual: content t1 delta"},
		{"outcome missing", Assertion{Type: AssertOutcome, Event: "focus home", Outcome: "announced"}, "event not dispatched"},
		{"buffer", Assertion{Type: AssertBufferText, Text: "Hello world\n"}, ""},
		{"buffer differs", Assertion{Type: AssertBufferText, Text: "Hello\n"}, `Expected: "Hello\n"`},
		{"unknown", Assertion{Type: "final_state"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesTranscript(t *testing.T) {
	err := &AssertionError{
		Type:       AssertSpoken,
		Expected:   "a",
		Actual:     "b",
		Transcript: sampleResult().Transcript,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: spoken")
	assert.Contains(t, msg, "[2] set_text t1")
	assert.Contains(t, msg, "event content t1 delta")
	assert.Contains(t, msg, `spoke "world"`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
