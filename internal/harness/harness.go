package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/aural/internal/backend/sim"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/ids"
	"github.com/roach88/aural/internal/journal"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/runtime"
	"github.com/roach88/aural/internal/testutil"
)

// CallTimeout bounds native calls during a scenario. Blocked nodes time
// out after it.
const CallTimeout = 20 * time.Millisecond

// Harness is the state of one scenario run.
//
// Thread-safety: a Harness drives its runtime from the calling goroutine
// only. Speak and RecordEvent are invoked from inside Settle.
type Harness struct {
	tree    *sim.Tree
	rt      *runtime.Runtime
	session *journal.Session
	current *Entry
	events  int
}

var (
	_ output.SpeechDriver   = (*Harness)(nil)
	_ runtime.EventRecorder = (*Harness)(nil)
)

// Run executes a scenario and evaluates its assertions.
//
// Each scenario runs over a fresh tree, runtime and in-memory journal.
// Errors are returned for scenarios that cannot be executed at all, such
// as a mutation naming an unknown node; failed assertions are reported in
// the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	wall := testutil.NewManualClock()

	var (
		tree *sim.Tree
		err  error
	)
	if scenario.Root != nil {
		tree, err = sim.New(*scenario.Root, sim.WithWall(wall))
	} else {
		tree, err = sim.LoadFile(scenario.Tree, sim.WithWall(wall))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	// Releases any calls still hung on blocked nodes.
	defer tree.Kill()

	j, err := journal.Open(journal.MemoryPath,
		journal.WithIDs(ids.NewSequential("session")),
		journal.WithWall(wall),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	sess, err := j.Begin(ctx, scenario.Name)
	if err != nil {
		return nil, err
	}

	h := &Harness{tree: tree, session: sess}
	h.rt, err = runtime.New(tree, runtime.Options{
		Speech:      h,
		Recorder:    sess,
		Events:      h,
		Wall:        wall,
		IDs:         ids.NewSequential("buf"),
		CallTimeout: CallTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start runtime: %w", err)
	}
	defer h.rt.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		h.current = &Entry{Step: step.String(), Events: []string{}, Spoken: []string{}}
		if err := h.apply(step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.String(), err)
		}
		h.rt.Settle(ctx)
		result.Transcript = append(result.Transcript, *h.current)
	}
	h.current = nil

	if buf := h.rt.Buffer(); buf != nil {
		result.Buffer = buf.Text()
	}

	// The journal must have seen exactly what the transcript shows.
	if err := sess.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush journal: %w", err)
	}
	logged, err := j.Events(ctx, sess.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	if len(logged) != h.events {
		result.AddError(fmt.Sprintf("journal recorded %d events, transcript has %d", len(logged), h.events))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// apply performs one step against the tree or the runtime.
func (h *Harness) apply(step Step) error {
	t := h.tree
	switch step.Action {
	case ActFocus:
		return t.Focus(step.Node)
	case ActSetText:
		return t.SetText(step.Node, *step.Text)
	case ActSetName:
		return t.SetName(step.Node, *step.Text)
	case ActSetValue:
		return t.SetValue(step.Node, *step.Text)
	case ActSetStates:
		return t.SetStates(step.Node, step.States)
	case ActMoveCaret:
		return t.MoveCaret(step.Node, step.Offset)
	case ActInsert:
		return t.Insert(step.Node, step.Index, *step.Spec)
	case ActRemove:
		return t.Remove(step.Node)
	case ActEmit:
		kind, err := events.ParseKind(step.Kind)
		if err != nil {
			return err
		}
		t.Emit(kind, step.Node)
	case ActBlock:
		t.Block(step.Node)
	case ActUnblock:
		t.Unblock(step.Node)
	case ActKill:
		t.Kill()
	case ActCommand:
		cmd, err := runtime.ParseCommand(step.Command)
		if err != nil {
			return err
		}
		if !h.rt.Post(cmd) {
			return fmt.Errorf("runtime closed")
		}
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// Speak implements output.SpeechDriver. Every utterance completes at once.
func (h *Harness) Speak(u output.Utterance, onDone func(error)) error {
	if h.current != nil {
		h.current.Spoken = append(h.current.Spoken, u.Text)
	}
	onDone(nil)
	return nil
}

// CancelSpeech implements output.SpeechDriver.
func (h *Harness) CancelSpeech() {}

// RecordEvent implements runtime.EventRecorder and forwards to the journal.
func (h *Harness) RecordEvent(ev events.Event, outcome string) {
	h.events++
	if h.current != nil {
		h.current.Events = append(h.current.Events, fmt.Sprintf("%s %s %s", ev.Kind, ev.Node.ID, outcome))
	} else {
		slog.Debug("event outside a scenario step", "event", ev.String(), "outcome", outcome)
	}
	h.session.RecordEvent(ev, outcome)
}
