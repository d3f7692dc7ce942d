// Package output arbitrates speech and braille output.
//
// Each channel runs a small state machine:
//
//	Idle ──request──▶ Busy ──now──▶ Interrupting ──▶ Busy
//	 ▲                 │
//	 └───completion────┘
//
// A "now" request cancels whatever is playing before it starts. "next" and
// "normal" requests wait in priority-then-sequence order. Queued "normal"
// requests are bounded; past the bound the oldest normal is dropped. "now"
// and "next" requests are never dropped.
//
// Driver completions arrive on arbitrary goroutines. They are posted to a
// mailbox and applied by Pump on the consumer goroutine, so the sequencer
// itself needs no locking.
package output

import (
	"fmt"

	"github.com/roach88/aural/internal/events"
)

// Channel is an output modality.
type Channel int

const (
	Speech Channel = iota
	Braille
)

func (c Channel) String() string {
	switch c {
	case Speech:
		return "speech"
	case Braille:
		return "braille"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Priority orders requests: Now > Next > Normal.
type Priority int

const (
	Normal Priority = iota
	Next
	Now
)

func (p Priority) String() string {
	switch p {
	case Normal:
		return "normal"
	case Next:
		return "next"
	case Now:
		return "now"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a priority name back to a Priority.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{Normal, Next, Now} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// State is a channel's state.
type State int

const (
	Idle State = iota
	// Busy is Speaking on the speech channel and Displaying on braille.
	Busy
	Interrupting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Interrupting:
		return "interrupting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Request is one unit of output.
type Request struct {
	Channel  Channel
	Text     string
	Priority Priority

	// Source is the event that caused the request, if any.
	Source *events.Event

	// Seq is assigned by Submit, strictly increasing per channel.
	Seq int64

	// MessageID groups braille requests into one logical message. A request
	// with the MessageID currently on display extends it instead of
	// replacing it.
	MessageID string

	// Language is a BCP 47 / ISO 639-1 tag for speech; detected when empty
	// and a detector is configured.
	Language string
}

// Utterance is what a speech driver receives.
type Utterance struct {
	Text     string
	Language string
	Seq      int64
}

// SpeechDriver speaks text. onDone may be called from any goroutine, or
// synchronously from inside Speak, exactly once per accepted utterance.
type SpeechDriver interface {
	Speak(u Utterance, onDone func(error)) error
	CancelSpeech()
}

// BrailleDriver writes cells to a refreshable display. onAck follows the
// same rules as SpeechDriver's onDone.
type BrailleDriver interface {
	RenderBraille(cells []rune, onAck func(error)) error
	Width() int
}

// Transition reports a channel state change.
type Transition struct {
	Channel Channel
	From    State
	To      State
	Seq     int64 // request that caused the change
}
