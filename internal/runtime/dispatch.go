package runtime

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/vbuf"
)

// Dispatch outcomes recorded per event.
const (
	OutcomeAnnounced = "announced"
	OutcomeSilent    = "silent"
	OutcomeStale     = "stale"
	OutcomeIgnored   = "ignored"
	OutcomeDelta     = "delta"
	OutcomeUnchanged = "unchanged"
	OutcomeRebuilt   = "rebuilt"
	OutcomeDropped   = "dropped"
)

// dispatch routes one event.
// CRITICAL: Called only from the consumer goroutine.
func (r *Runtime) dispatch(ctx context.Context, ev events.Event) {
	var outcome string
	switch ev.Kind {
	case events.FocusChanged:
		outcome = r.onFocus(ctx, ev)
	case events.CaretMoved:
		outcome = r.onCaret(ctx, ev)
	case events.ValueChanged:
		outcome = r.onValue(ctx, ev)
	case events.StatesChanged:
		outcome = r.onStates(ctx, ev)
	case events.ContentChanged, events.ObjectCreated:
		outcome = r.onContent(ctx, ev)
	case events.ObjectDestroyed:
		outcome = r.onDestroyed(ctx, ev)
	default:
		outcome = OutcomeIgnored
	}

	slog.Debug("event dispatched",
		"kind", ev.Kind.String(),
		"node", ev.Node.String(),
		"seq", ev.Seq,
		"merged", ev.Merged,
		"outcome", outcome,
	)
	if r.opts.Metrics != nil {
		r.opts.Metrics.Dispatched(ev.Kind)
	}
	if r.opts.Events != nil {
		r.opts.Events.RecordEvent(ev, outcome)
	}
}

// resolve reads the event's node. Failures are logged and mean silence.
func (r *Runtime) resolve(ctx context.Context, ev events.Event) (a11y.Node, bool) {
	node, err := r.model.Resolve(ctx, ev.Node)
	if err != nil {
		slog.Debug("event node unavailable",
			"kind", ev.Kind.String(),
			"node", ev.Node.String(),
			"timeout", a11y.IsTimeout(err),
			"error", err,
		)
		return a11y.Node{}, false
	}
	return node, true
}

func (r *Runtime) onFocus(ctx context.Context, ev events.Event) string {
	node, ok := r.resolve(ctx, ev)
	if !ok {
		return OutcomeStale
	}
	// Native APIs repeat focus for an element that already has it. Stay
	// quiet unless the review object wandered off.
	if !r.focus.IsZero() && r.review == r.focus && a11y.SameElement(r.focusSnap, node.Snapshot) {
		r.focusSnap = node.Snapshot
		return OutcomeUnchanged
	}
	r.focus = node.Handle
	r.focusSnap = node.Snapshot
	r.review = node.Handle
	r.enterDocument(ctx, node.Handle)

	text := r.describeNode(node)
	if text == "" {
		return OutcomeSilent
	}
	r.announce(text, output.Now, &ev, "")
	return OutcomeAnnounced
}

// describeNode is Describe, falling back to the element's buffer text for
// containers that have neither name nor role words.
func (r *Runtime) describeNode(node a11y.Node) string {
	if text := Describe(node.Snapshot); text != "" {
		return text
	}
	if r.buf == nil {
		return ""
	}
	rng, err := r.buf.FindNode(node.Handle)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(r.buf.Slice(rng.Start, rng.End)), " ")
}

// enterDocument makes sure the buffer covers the document containing h.
// Focus outside any document keeps the current buffer.
func (r *Runtime) enterDocument(ctx context.Context, h a11y.Handle) {
	doc, err := r.model.AncestorWithRole(ctx, h, a11y.RoleDocument)
	if err != nil {
		return
	}
	if r.buf == nil || r.buf.Root() != doc.Handle {
		r.rebuild(ctx, doc.Handle)
	}
	if r.buf != nil {
		if rng, err := r.buf.FindNode(h); err == nil && rng.Len() > 0 {
			r.cursor = rng.Start
		}
	}
}

// rebuild replaces the buffer with a fresh projection of root. On failure
// the buffer is dropped.
func (r *Runtime) rebuild(ctx context.Context, root a11y.Handle) bool {
	if r.opts.Metrics != nil {
		r.opts.Metrics.Rebuilt()
	}
	buf, err := r.engine.Build(ctx, root)
	if err != nil {
		slog.Warn("buffer build failed", "root", root.String(), "error", err)
		r.buf = nil
		r.cursor = 0
		return false
	}
	r.buf = buf
	r.cursor = 0
	return true
}

func (r *Runtime) onCaret(ctx context.Context, ev events.Event) string {
	node, ok := r.resolve(ctx, ev)
	if !ok {
		return OutcomeStale
	}
	snap := node.Snapshot
	caret := ev.Caret
	if snap.Caret >= 0 {
		caret = snap.Caret
	}
	if r.buf != nil {
		if rng, err := r.buf.FindNode(node.Handle); err == nil && rng.Len() > 0 {
			r.cursor = min(rng.Start+max(caret, 0), rng.End-1)
		}
	}
	if !snap.HasText {
		return OutcomeSilent
	}
	r.announce(lineAt(snap.Text, caret), output.Now, &ev, "")
	return OutcomeAnnounced
}

func (r *Runtime) onValue(ctx context.Context, ev events.Event) string {
	if ev.Node != r.focus {
		return OutcomeIgnored
	}
	node, ok := r.resolve(ctx, ev)
	if !ok {
		return OutcomeStale
	}
	if node.Snapshot.Value == "" {
		return OutcomeSilent
	}
	r.announce(node.Snapshot.Value, output.Next, &ev, "")
	return OutcomeAnnounced
}

func (r *Runtime) onStates(ctx context.Context, ev events.Event) string {
	if ev.Node != r.focus && ev.Node != r.review {
		return OutcomeIgnored
	}
	prev, hadPrev := r.model.Cached(ev.Node)
	node, ok := r.resolve(ctx, ev)
	if !ok {
		return OutcomeStale
	}
	var text string
	if hadPrev {
		text = StateChange(prev, node.Snapshot)
	} else {
		text = stateWords(node.Snapshot)
	}
	if text == "" {
		return OutcomeSilent
	}
	r.announce(text, output.Now, &ev, "")
	return OutcomeAnnounced
}

func (r *Runtime) onContent(ctx context.Context, ev events.Event) string {
	if r.buf == nil {
		return OutcomeIgnored
	}
	if !r.buf.Contains(ev.Node) && !r.model.IsAncestor(ctx, r.buf.Root(), ev.Node) {
		return OutcomeIgnored
	}
	return r.patch(ctx, ev, ev.Node, true)
}

func (r *Runtime) onDestroyed(ctx context.Context, ev events.Event) string {
	r.model.Forget(ev.Node)
	if ev.Node == r.focus {
		r.focus = a11y.Handle{}
		r.focusSnap = a11y.Snapshot{}
	}
	if ev.Node == r.review {
		r.review = r.focus
	}
	if r.buf == nil || !r.buf.Contains(ev.Node) {
		return OutcomeIgnored
	}
	if ev.Node == r.buf.Root() {
		slog.Debug("document destroyed", "buffer", r.buf.ID())
		r.buf = nil
		r.cursor = 0
		return OutcomeDropped
	}
	parent, err := r.buf.ParentOf(ev.Node)
	if err != nil {
		return OutcomeIgnored
	}
	return r.patch(ctx, ev, parent, false)
}

// patch applies a delta for h and optionally announces inserted text.
// A detached subtree falls back to a full rebuild of the document.
func (r *Runtime) patch(ctx context.Context, ev events.Event, h a11y.Handle, speak bool) string {
	start := r.opts.Wall.Now()
	diff, err := r.engine.ApplyDelta(ctx, r.buf, h)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveDelta(r.opts.Wall.Now().Sub(start))
	}
	if err != nil {
		if vbuf.IsDetached(err) {
			slog.Debug("subtree detached, rebuilding", "node", h.String(), "error", err)
			if r.rebuild(ctx, r.buf.Root()) {
				return OutcomeRebuilt
			}
			return OutcomeDropped
		}
		slog.Debug("buffer delta failed", "node", h.String(), "error", err)
		return OutcomeStale
	}
	if diff.Empty() {
		return OutcomeUnchanged
	}

	r.shiftCursor(diff)
	if !speak {
		return OutcomeDelta
	}
	text := strings.Join(strings.Fields(diff.New), " ")
	if text == "" {
		return OutcomeDelta
	}
	r.announce(text, output.Normal, &ev, "delta:"+ev.Node.String())
	return OutcomeDelta
}

// shiftCursor keeps the review cursor on the same text across a splice.
func (r *Runtime) shiftCursor(diff vbuf.TextDiff) {
	if r.cursor >= diff.Offset+diff.OldLen {
		r.cursor += diff.NewLen - diff.OldLen
	} else if r.cursor >= diff.Offset {
		r.cursor = diff.Offset
	}
	r.cursor = max(0, min(r.cursor, r.buf.Len()-1))
}

// announce submits text to both channels.
func (r *Runtime) announce(text string, prio output.Priority, src *events.Event, messageID string) {
	r.seq.Submit(output.Request{
		Channel:  output.Speech,
		Text:     text,
		Priority: prio,
		Source:   src,
	})
	r.seq.Submit(output.Request{
		Channel:   output.Braille,
		Text:      text,
		Priority:  prio,
		Source:    src,
		MessageID: messageID,
	})
}

// lineAt returns the line of text containing rune offset caret.
func lineAt(text string, caret int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return "blank"
	}
	caret = max(0, min(caret, len(runes)-1))
	start := caret
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	end := caret
	for end < len(runes) && runes[end] != '\n' {
		end++
	}
	line := strings.TrimSpace(string(runes[start:end]))
	if line == "" {
		return "blank"
	}
	return line
}
