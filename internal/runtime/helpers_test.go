package runtime

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/aural/internal/backend/sim"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/ids"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/testutil"
)

const pageText = "Home\nWelcome\nHello\nDetails\nI agree\n"

// fakeSpeech records utterances. With auto set it completes each one
// synchronously; otherwise completions wait for finish.
type fakeSpeech struct {
	mu      sync.Mutex
	auto    bool
	texts   []string
	pending []func(error)
	cancels int
}

func (f *fakeSpeech) Speak(u output.Utterance, onDone func(error)) error {
	f.mu.Lock()
	f.texts = append(f.texts, u.Text)
	if !f.auto {
		f.pending = append(f.pending, onDone)
	}
	auto := f.auto
	f.mu.Unlock()

	if auto {
		onDone(nil)
	}
	return nil
}

func (f *fakeSpeech) CancelSpeech() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSpeech) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.texts)
}

func (f *fakeSpeech) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

// eventLog implements EventRecorder.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) RecordEvent(ev events.Event, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s %s %s", ev.Kind, ev.Node.ID, outcome))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

type fixture struct {
	rt     *Runtime
	tree   *sim.Tree
	speech *fakeSpeech
	log    *eventLog
}

// setup loads testdata/page.yaml and wires a runtime over it. mutate may
// adjust options before construction.
func setup(t *testing.T, auto bool, mutate func(*Options)) *fixture {
	t.Helper()
	return setupTree(t, "page.yaml", auto, mutate)
}

func setupTree(t *testing.T, name string, auto bool, mutate func(*Options)) *fixture {
	t.Helper()
	tree, err := sim.LoadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	f := &fixture{tree: tree, speech: &fakeSpeech{auto: auto}, log: &eventLog{}}
	opts := Options{
		Speech: f.speech,
		Events: f.log,
		Wall:   testutil.NewManualClock(),
		IDs:    ids.NewSequential("buf"),
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.rt, err = New(tree, opts)
	require.NoError(t, err)
	t.Cleanup(func() { f.rt.Close() })
	return f
}
