package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError describes a failed assertion with the run for context.
type AssertionError struct {
	Type       string
	Expected   string
	Actual     string
	Transcript []Entry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nTranscript:\n")
	for i, entry := range e.Transcript {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, entry.Step)
		for _, ev := range entry.Events {
			fmt.Fprintf(&buf, "      event %s\n", ev)
		}
		for _, s := range entry.Spoken {
			fmt.Fprintf(&buf, "      spoke %q\n", s)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertSpoken:
		return assertSpoken(result, a)
	case AssertSpokenContains:
		return assertSpokenContains(result, a)
	case AssertOutcome:
		return assertOutcome(result, a)
	case AssertBufferText:
		return assertBufferText(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertSpoken(result *Result, a Assertion) error {
	got := result.Spoken()
	if slices.Equal(got, a.Texts) {
		return nil
	}
	return &AssertionError{
		Type:       AssertSpoken,
		Expected:   fmt.Sprintf("%q", a.Texts),
		Actual:     fmt.Sprintf("%q", got),
		Transcript: result.Transcript,
	}
}

func assertSpokenContains(result *Result, a Assertion) error {
	if slices.Contains(result.Spoken(), a.Text) {
		return nil
	}
	return &AssertionError{
		Type:       AssertSpokenContains,
		Expected:   fmt.Sprintf("utterance %q", a.Text),
		Actual:     "not spoken",
		Transcript: result.Transcript,
	}
}

// assertOutcome finds the first dispatch of the named event and compares
// its outcome.
func assertOutcome(result *Result, a Assertion) error {
	prefix := strings.TrimSpace(a.Event) + " "
	for _, ev := range result.Events() {
		if outcome, ok := strings.CutPrefix(ev, prefix); ok {
			if outcome == a.Outcome {
				return nil
			}
			return &AssertionError{
				Type:       AssertOutcome,
				Expected:   fmt.Sprintf("%s %s", a.Event, a.Outcome),
				Actual:     ev,
				Transcript: result.Transcript,
			}
		}
	}
	return &AssertionError{
		Type:       AssertOutcome,
		Expected:   fmt.Sprintf("%s %s", a.Event, a.Outcome),
		Actual:     "event not dispatched",
		Transcript: result.Transcript,
	}
}

func assertBufferText(result *Result, a Assertion) error {
	if result.Buffer == a.Text {
		return nil
	}
	return &AssertionError{
		Type:       AssertBufferText,
		Expected:   fmt.Sprintf("%q", a.Text),
		Actual:     fmt.Sprintf("%q", result.Buffer),
		Transcript: result.Transcript,
	}
}
