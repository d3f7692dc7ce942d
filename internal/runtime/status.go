package runtime

import "github.com/roach88/aural/internal/output"

// Status is a point-in-time view of consumer state for the debug server.
type Status struct {
	Focus        string   `json:"focus,omitempty"`
	Review       string   `json:"review,omitempty"`
	Buffer       string   `json:"buffer,omitempty"`
	BufferLength int      `json:"buffer_length"`
	BufferNodes  int      `json:"buffer_nodes"`
	Cursor       int      `json:"cursor"`
	Speech       string   `json:"speech"`
	Braille      string   `json:"braille"`
	SpeechQueue  []string `json:"speech_queue"`
	PendingRaw   int      `json:"pending_events"`
	CachedNodes  int      `json:"cached_nodes"`
	Inflight     int      `json:"inflight_calls"`

	// Text is the full buffer text; omitted from JSON status.
	Text string `json:"-"`
}

// Status returns the state published after the last step. Safe from any
// goroutine.
func (r *Runtime) Status() Status {
	if s := r.status.Load(); s != nil {
		return *s
	}
	return Status{}
}

// publish snapshots consumer state.
// CRITICAL: Called only from the consumer goroutine.
func (r *Runtime) publish() {
	s := &Status{
		Cursor:      r.cursor,
		Speech:      r.seq.State(output.Speech).String(),
		Braille:     r.seq.State(output.Braille).String(),
		SpeechQueue: []string{},
		PendingRaw:  r.queue.Len(),
		CachedNodes: r.model.CacheLen(),
		Inflight:    r.model.Inflight(),
	}
	if !r.focus.IsZero() {
		s.Focus = r.focus.String()
	}
	if !r.review.IsZero() {
		s.Review = r.review.String()
	}
	if r.buf != nil {
		s.Buffer = r.buf.ID()
		s.BufferLength = r.buf.Len()
		s.BufferNodes = r.buf.NodeCount()
		s.Text = r.buf.Text()
	}
	for _, q := range r.seq.Queued(output.Speech) {
		s.SpeechQueue = append(s.SpeechQueue, q.Text)
	}
	r.status.Store(s)
}
