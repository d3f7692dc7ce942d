package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/roach88/aural/internal/output"
)

// ConsoleSpeech "speaks" by printing each utterance on its own line.
// Output is instantaneous, so every utterance completes inside Speak.
type ConsoleSpeech struct {
	mu  sync.Mutex
	out *termenv.Output
}

// NewConsoleSpeech writes utterances to w. Colours are used only when w is
// a terminal that supports them.
func NewConsoleSpeech(w io.Writer) *ConsoleSpeech {
	return &ConsoleSpeech{out: termenv.NewOutput(w)}
}

// Speak implements output.SpeechDriver.
func (c *ConsoleSpeech) Speak(u output.Utterance, onDone func(error)) error {
	c.mu.Lock()
	label := c.out.String("speech").Foreground(c.out.Color("#818cf8")).Bold()
	if u.Language != "" {
		fmt.Fprintf(c.out, "%s [%s] %s\n", label, u.Language, u.Text)
	} else {
		fmt.Fprintf(c.out, "%s %s\n", label, u.Text)
	}
	c.mu.Unlock()

	onDone(nil)
	return nil
}

// CancelSpeech implements output.SpeechDriver. Printed text cannot be
// taken back, so there is nothing to stop.
func (c *ConsoleSpeech) CancelSpeech() {}

// ConsoleBraille renders cells as Unicode braille patterns.
type ConsoleBraille struct {
	mu    sync.Mutex
	out   *termenv.Output
	width int
}

// NewConsoleBraille writes braille lines of width cells to w.
func NewConsoleBraille(w io.Writer, width int) *ConsoleBraille {
	if width <= 0 {
		width = output.DefaultBrailleWidth
	}
	return &ConsoleBraille{out: termenv.NewOutput(w), width: width}
}

// RenderBraille implements output.BrailleDriver.
func (c *ConsoleBraille) RenderBraille(cells []rune, onAck func(error)) error {
	c.mu.Lock()
	label := c.out.String("braille").Foreground(c.out.Color("#f472b6"))
	fmt.Fprintf(c.out, "%s %s\n", label, string(cells))
	c.mu.Unlock()

	onAck(nil)
	return nil
}

// Width implements output.BrailleDriver.
func (c *ConsoleBraille) Width() int { return c.width }
