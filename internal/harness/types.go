package harness

// Entry is the transcript of one scenario step.
type Entry struct {
	// Step is the step's text form, e.g. "focus agree".
	Step string `json:"step"`

	// Events lists dispatched events as "kind node outcome".
	Events []string `json:"events"`

	// Spoken lists utterances handed to the speech driver.
	Spoken []string `json:"spoken"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Transcript []Entry `json:"transcript"`

	// Buffer is the final virtual buffer text, "" without a buffer.
	Buffer string `json:"buffer"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Transcript: []Entry{},
		Errors:     []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Spoken flattens the transcript's utterances in order.
func (r *Result) Spoken() []string {
	out := []string{}
	for _, e := range r.Transcript {
		out = append(out, e.Spoken...)
	}
	return out
}

// Events flattens the transcript's events in order.
func (r *Result) Events() []string {
	out := []string{}
	for _, e := range r.Transcript {
		out = append(out, e.Events...)
	}
	return out
}
