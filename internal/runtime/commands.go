package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/vbuf"
)

// CommandKind identifies a user command.
type CommandKind int

const (
	CmdNavigate CommandKind = iota + 1
	CmdActivate
	CmdReadLine
	CmdNextLandmark
	CmdNextMarker
	CmdPrevMarker
	CmdSilence
	CmdScrollBraille
)

var commandNames = map[CommandKind]string{
	CmdNavigate:      "nav",
	CmdActivate:      "activate",
	CmdReadLine:      "line",
	CmdNextLandmark:  "landmark",
	CmdNextMarker:    "next",
	CmdPrevMarker:    "prev",
	CmdSilence:       "silence",
	CmdScrollBraille: "scroll",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is a user command posted from another goroutine.
type Command struct {
	Kind      CommandKind
	Direction a11y.Direction  // CmdNavigate
	Marker    vbuf.MarkerKind // CmdNextMarker, CmdPrevMarker
	Label     string          // CmdNextMarker, CmdPrevMarker, CmdNextLandmark
	Delta     int             // CmdScrollBraille
}

func (c Command) String() string {
	switch c.Kind {
	case CmdNavigate:
		return "nav " + c.Direction.String()
	case CmdNextMarker, CmdPrevMarker:
		s := c.Kind.String() + " " + c.Marker.String()
		if c.Label != "" {
			s += " " + c.Label
		}
		return s
	case CmdNextLandmark:
		return strings.TrimSpace(c.Kind.String() + " " + c.Label)
	case CmdScrollBraille:
		return fmt.Sprintf("scroll %d", c.Delta)
	}
	return c.Kind.String()
}

// ParseCommand reads the text form used by the console and scenarios:
//
//	nav <direction>          navigate the review object
//	activate                 default action of the review object
//	line                     read the line at the review cursor
//	landmark [kind]          jump to the next landmark, optionally of kind
//	next <marker> [label]    jump to the next marker
//	prev <marker> [label]    jump to the previous marker
//	silence                  stop speech
//	scroll [delta]           scroll braille (default 1)
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	var kind CommandKind
	for k, n := range commandNames {
		if n == name {
			kind = k
		}
	}

	cmd := Command{Kind: kind}
	switch kind {
	case CmdNavigate:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("nav: want one direction")
		}
		dir, err := a11y.ParseDirection(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("nav: %w", err)
		}
		cmd.Direction = dir
	case CmdNextMarker, CmdPrevMarker:
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%s: want a marker kind", name)
		}
		mk, err := vbuf.ParseMarkerKind(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", name, err)
		}
		cmd.Marker = mk
		cmd.Label = strings.Join(args[1:], " ")
	case CmdScrollBraille:
		cmd.Delta = 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return Command{}, fmt.Errorf("scroll: %w", err)
			}
			cmd.Delta = n
		}
	case CmdNextLandmark:
		cmd.Label = strings.Join(args, " ")
	case CmdActivate, CmdReadLine, CmdSilence:
		if len(args) > 0 {
			return Command{}, fmt.Errorf("%s takes no arguments", name)
		}
	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	return cmd, nil
}

// Execute runs cmd on the consumer goroutine.
func (r *Runtime) Execute(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CmdNavigate:
		return r.Navigate(ctx, cmd.Direction)
	case CmdActivate:
		return r.ActivateCurrent(ctx)
	case CmdReadLine:
		return r.ReadCurrentLine(ctx)
	case CmdNextLandmark:
		return r.JumpToNextLandmark(ctx, cmd.Label)
	case CmdNextMarker:
		return r.JumpToNext(ctx, cmd.Marker, cmd.Label)
	case CmdPrevMarker:
		return r.JumpToPrevious(ctx, cmd.Marker, cmd.Label)
	case CmdSilence:
		r.Silence()
		return nil
	case CmdScrollBraille:
		return r.ScrollBraille(cmd.Delta)
	}
	return fmt.Errorf("unknown command %d", int(cmd.Kind))
}

// notAvailable announces the failure of an explicit command.
func (r *Runtime) notAvailable(err error) error {
	r.announce(NotAvailableText, output.Now, nil, "")
	if err == nil {
		return ErrNotAvailable
	}
	return fmt.Errorf("%w: %w", ErrNotAvailable, err)
}

// Navigate moves the review object and announces it.
func (r *Runtime) Navigate(ctx context.Context, dir a11y.Direction) error {
	if r.review.IsZero() {
		return r.notAvailable(nil)
	}
	node, err := r.model.Navigate(ctx, r.review, dir)
	if err != nil {
		return r.notAvailable(err)
	}
	r.review = node.Handle
	if r.buf != nil {
		if rng, err := r.buf.FindNode(node.Handle); err == nil && rng.Len() > 0 {
			r.cursor = rng.Start
		}
	}
	text := r.describeNode(node)
	if text == "" {
		text = "blank"
	}
	r.announce(text, output.Now, nil, "")
	return nil
}

// ActivateCurrent runs the review object's default action. Success is
// silent: the resulting state change announces itself.
func (r *Runtime) ActivateCurrent(ctx context.Context) error {
	if r.review.IsZero() {
		return r.notAvailable(nil)
	}
	// Refresh the cache so the state change can be described as a delta.
	if _, err := r.model.ReadProperties(ctx, r.review); err != nil {
		return r.notAvailable(err)
	}
	if err := r.model.Activate(ctx, r.review); err != nil {
		return r.notAvailable(err)
	}
	return nil
}

// ReadCurrentLine reads the buffer line at the review cursor, or describes
// the review object outside documents.
func (r *Runtime) ReadCurrentLine(ctx context.Context) error {
	if r.buf == nil || r.buf.Len() == 0 {
		if r.review.IsZero() {
			return r.notAvailable(nil)
		}
		node, err := r.model.Resolve(ctx, r.review)
		if err != nil {
			return r.notAvailable(err)
		}
		r.announce(Describe(node.Snapshot), output.Now, nil, "")
		return nil
	}
	_, line, err := r.buf.LineAt(r.cursor)
	if err != nil {
		return r.notAvailable(err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		line = "blank"
	}
	r.announce(line, output.Now, nil, "")
	return nil
}

// JumpToNextLandmark moves the review cursor to the next landmark, of kind
// when kind is non-empty.
func (r *Runtime) JumpToNextLandmark(ctx context.Context, kind string) error {
	return r.JumpToNext(ctx, vbuf.MarkerLandmark, kind)
}

// JumpToNext moves the review cursor to the next marker of kind.
func (r *Runtime) JumpToNext(ctx context.Context, kind vbuf.MarkerKind, label string) error {
	if r.buf == nil {
		return r.notAvailable(nil)
	}
	m, err := r.buf.NextMarker(r.position(), kind, label)
	if err != nil {
		return r.notAvailable(err)
	}
	r.jump(m)
	return nil
}

// JumpToPrevious moves the review cursor to the previous marker of kind.
func (r *Runtime) JumpToPrevious(ctx context.Context, kind vbuf.MarkerKind, label string) error {
	if r.buf == nil {
		return r.notAvailable(nil)
	}
	m, err := r.buf.PrevMarker(r.position(), kind, label)
	if err != nil {
		return r.notAvailable(err)
	}
	r.jump(m)
	return nil
}

// position is the review position; the review object tells apart markers
// sharing the cursor offset.
func (r *Runtime) position() vbuf.Position {
	return vbuf.Position{Offset: r.cursor, Node: r.review}
}

func (r *Runtime) jump(m vbuf.Marker) {
	r.cursor = m.Offset
	r.review = m.Node
	_, line, _ := r.buf.LineAt(m.Offset)
	r.announce(strings.TrimSpace(markerPrefix(m)+" "+strings.TrimSpace(line)), output.Now, nil, "")
}

func markerPrefix(m vbuf.Marker) string {
	switch m.Kind {
	case vbuf.MarkerHeading:
		if m.Level > 0 {
			return fmt.Sprintf("heading level %d", m.Level)
		}
		return "heading"
	case vbuf.MarkerLandmark:
		return strings.TrimSpace(m.Label + " landmark")
	case vbuf.MarkerFormField:
		return ""
	}
	return m.Kind.String()
}

// Silence stops speech and discards queued speech. Braille stays.
func (r *Runtime) Silence() {
	r.seq.Cancel(output.Speech)
}

// ScrollBraille moves the braille display by delta pages.
func (r *Runtime) ScrollBraille(delta int) error {
	if !r.seq.ScrollBraille(delta) {
		return ErrNotAvailable
	}
	return nil
}
