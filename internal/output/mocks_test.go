package output

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// mockSpeech records utterances and holds their completion hooks until the
// test finishes them.
type mockSpeech struct {
	mock.Mock
	mu    sync.Mutex
	said  []Utterance
	dones []func(error)
}

func newMockSpeech() *mockSpeech {
	m := new(mockSpeech)
	m.On("Speak", mock.Anything).Return(nil).Maybe()
	m.On("CancelSpeech").Return().Maybe()
	return m
}

func (m *mockSpeech) Speak(u Utterance, onDone func(error)) error {
	args := m.Called(u.Text)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.said = append(m.said, u)
	m.dones = append(m.dones, onDone)
	return nil
}

func (m *mockSpeech) CancelSpeech() {
	m.Called()
}

// finish completes the i-th accepted utterance.
func (m *mockSpeech) finish(i int, err error) {
	m.mu.Lock()
	done := m.dones[i]
	m.mu.Unlock()
	done(err)
}

func (m *mockSpeech) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.said))
	for i, u := range m.said {
		out[i] = u.Text
	}
	return out
}

type mockBraille struct {
	mock.Mock
	mu    sync.Mutex
	shown [][]rune
	width int
}

func newMockBraille(width int) *mockBraille {
	m := &mockBraille{width: width}
	m.On("RenderBraille", mock.Anything).Return(nil).Maybe()
	return m
}

func (m *mockBraille) RenderBraille(cells []rune, onAck func(error)) error {
	args := m.Called(cells)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	m.shown = append(m.shown, cells)
	m.mu.Unlock()
	onAck(nil)
	return nil
}

func (m *mockBraille) Width() int { return m.width }

func (m *mockBraille) last() []rune {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.shown) == 0 {
		return nil
	}
	return m.shown[len(m.shown)-1]
}

// transitions collects state changes.
type transitions struct {
	list []Transition
}

func (t *transitions) add(tr Transition) { t.list = append(t.list, tr) }

type records struct {
	list []Record
}

func (r *records) RecordOutput(rec Record) { r.list = append(r.list, rec) }

func (r *records) with(status Status) []Record {
	var out []Record
	for _, rec := range r.list {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}
