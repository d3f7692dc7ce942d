package output

import (
	"log/slog"
	"slices"

	"github.com/roach88/aural/internal/clock"
	"github.com/roach88/aural/internal/mailbox"
)

// DefaultNormalBound is the default K: queued normal requests per channel.
const DefaultNormalBound = 8

// Options configures a Sequencer.
type Options struct {
	// NormalBound caps queued normal requests per channel.
	NormalBound int

	Speech  SpeechDriver
	Braille BrailleDriver

	// Detector tags speech requests that carry no language. Optional.
	Detector LanguageDetector

	// Recorder observes every lifecycle step. Optional.
	Recorder Recorder

	// OnTransition observes state changes. Optional.
	OnTransition func(Transition)
}

type completion struct {
	ch    Channel
	token uint64
	err   error
}

type channelState struct {
	ch      Channel
	state   State
	current *Request
	// token identifies the output in flight; completions carrying an older
	// token belong to cancelled output and are ignored.
	token uint64
	queue []Request
	seq   *clock.Sequence
}

// Sequencer is the per-channel output arbiter.
//
// Thread-safety: every method except the driver callbacks it hands out
// belongs to the consumer goroutine.
type Sequencer struct {
	opts    Options
	chans   [2]*channelState
	done    *mailbox.Box[completion]
	display display
}

// NewSequencer creates an idle sequencer. A nil driver makes its channel
// accept and immediately discard requests.
func NewSequencer(opts Options) *Sequencer {
	if opts.NormalBound <= 0 {
		opts.NormalBound = DefaultNormalBound
	}
	s := &Sequencer{
		opts: opts,
		done: mailbox.New[completion](16),
	}
	for _, ch := range []Channel{Speech, Braille} {
		s.chans[ch] = &channelState{ch: ch, seq: clock.NewSequence()}
	}
	return s
}

// Submit assigns the request its sequence number and schedules it.
// A Now request interrupts the channel before Submit returns.
func (s *Sequencer) Submit(req Request) Request {
	cs := s.chans[req.Channel]
	req.Seq = cs.seq.Next()
	if req.Channel == Speech && req.Language == "" && s.opts.Detector != nil && detectable(req.Text) {
		if lang, ok := s.opts.Detector.Detect(req.Text); ok {
			req.Language = lang
		}
	}
	s.record(req, StatusSubmitted, nil)

	switch {
	case cs.state == Idle:
		s.start(cs, req)
	case req.Priority == Now:
		s.interrupt(cs, req)
	default:
		s.enqueue(cs, req)
	}
	return req
}

// Ready signals pending driver completions.
func (s *Sequencer) Ready() <-chan struct{} {
	return s.done.Wait()
}

// Pump applies pending driver completions. Returns how many were applied,
// stale ones included.
func (s *Sequencer) Pump() int {
	batch := s.done.TakeAll()
	for _, c := range batch {
		cs := s.chans[c.ch]
		if cs.current == nil || c.token != cs.token {
			slog.Debug("ignoring stale output completion",
				"channel", c.ch.String(),
				"token", c.token,
			)
			continue
		}
		req := *cs.current
		cs.current = nil
		if c.err != nil {
			s.fail(cs, req, c.err)
		} else {
			s.record(req, StatusCompleted, nil)
			s.transition(cs, Idle, req.Seq)
		}
		s.startNext(cs)
	}
	return len(batch)
}

// Cancel silences a channel: the current output is cancelled and queued
// requests are discarded. Cancelling an idle channel is a no-op.
func (s *Sequencer) Cancel(ch Channel) {
	cs := s.chans[ch]
	if cs.state == Idle && len(cs.queue) == 0 {
		return
	}
	var seq int64
	if cs.current != nil {
		seq = cs.current.Seq
		s.transition(cs, Interrupting, seq)
		s.stop(cs)
	}
	for _, q := range cs.queue {
		s.record(q, StatusCancelled, nil)
	}
	cs.queue = nil
	s.transition(cs, Idle, seq)
}

// State returns a channel's state.
func (s *Sequencer) State(ch Channel) State {
	return s.chans[ch].state
}

// Queued returns a copy of a channel's queue in dispatch order.
func (s *Sequencer) Queued(ch Channel) []Request {
	return slices.Clone(s.chans[ch].queue)
}

// Current returns the request in flight on a channel.
func (s *Sequencer) Current(ch Channel) (Request, bool) {
	cur := s.chans[ch].current
	if cur == nil {
		return Request{}, false
	}
	return *cur, true
}

// LastSeq returns the last sequence number issued on a channel.
func (s *Sequencer) LastSeq(ch Channel) int64 {
	return s.chans[ch].seq.Current()
}

// ScrollBraille moves the braille display by delta pages and re-renders.
// Returns false when there is nothing further in that direction.
func (s *Sequencer) ScrollBraille(delta int) bool {
	page, ok := s.display.scroll(delta)
	if !ok || s.opts.Braille == nil {
		return ok
	}
	// Token 0 never matches an output in flight, so the ack is ignored.
	err := s.opts.Braille.RenderBraille(Cells(page), s.callback(Braille, 0))
	if err != nil {
		slog.Warn("braille scroll failed", "error", err)
	}
	return true
}

// BrailleWidth returns the display width in cells.
func (s *Sequencer) BrailleWidth() int {
	if s.opts.Braille == nil || s.opts.Braille.Width() <= 0 {
		return DefaultBrailleWidth
	}
	return s.opts.Braille.Width()
}

// interrupt cancels the current output and starts req in its place.
func (s *Sequencer) interrupt(cs *channelState, req Request) {
	s.transition(cs, Interrupting, req.Seq)
	s.stop(cs)
	s.start(cs, req)
}

// stop cancels the output in flight.
func (s *Sequencer) stop(cs *channelState) {
	if cs.current == nil {
		return
	}
	if cs.ch == Speech && s.opts.Speech != nil {
		s.opts.Speech.CancelSpeech()
	}
	s.record(*cs.current, StatusCancelled, nil)
	cs.current = nil
	cs.token++
}

// enqueue inserts req in priority-then-seq order and applies the bound.
func (s *Sequencer) enqueue(cs *channelState, req Request) {
	i, _ := slices.BinarySearchFunc(cs.queue, req, func(q, r Request) int {
		if q.Priority != r.Priority {
			return int(r.Priority) - int(q.Priority)
		}
		return int(q.Seq - r.Seq)
	})
	cs.queue = slices.Insert(cs.queue, i, req)

	if req.Priority != Normal {
		return
	}
	normals := 0
	oldest := -1
	for j, q := range cs.queue {
		if q.Priority != Normal {
			continue
		}
		normals++
		if oldest < 0 || q.Seq < cs.queue[oldest].Seq {
			oldest = j
		}
	}
	if normals > s.opts.NormalBound {
		dropped := cs.queue[oldest]
		cs.queue = slices.Delete(cs.queue, oldest, oldest+1)
		slog.Debug("output queue full, dropping oldest normal request",
			"channel", cs.ch.String(),
			"seq", dropped.Seq,
			"bound", s.opts.NormalBound,
		)
		s.record(dropped, StatusDropped, nil)
	}
}

// start hands req to the driver.
func (s *Sequencer) start(cs *channelState, req Request) {
	cs.token++
	cs.current = &req
	s.transition(cs, Busy, req.Seq)
	s.record(req, StatusStarted, nil)

	var err error
	switch cs.ch {
	case Speech:
		if s.opts.Speech == nil {
			s.done.Put(completion{ch: cs.ch, token: cs.token})
			return
		}
		err = s.opts.Speech.Speak(Utterance{Text: req.Text, Language: req.Language, Seq: req.Seq}, s.callback(cs.ch, cs.token))
	case Braille:
		page := s.display.show(req, s.BrailleWidth())
		if s.opts.Braille == nil {
			s.done.Put(completion{ch: cs.ch, token: cs.token})
			return
		}
		err = s.opts.Braille.RenderBraille(Cells(page), s.callback(cs.ch, cs.token))
	}
	if err != nil {
		cs.current = nil
		cs.token++
		s.fail(cs, req, err)
		s.startNext(cs)
	}
}

func (s *Sequencer) startNext(cs *channelState) {
	if cs.current != nil || len(cs.queue) == 0 {
		return
	}
	next := cs.queue[0]
	cs.queue = slices.Delete(cs.queue, 0, 1)
	s.start(cs, next)
}

// fail drops a request whose driver reported an error. No retry.
func (s *Sequencer) fail(cs *channelState, req Request, err error) {
	derr := &DriverError{Channel: cs.ch, Seq: req.Seq, Err: err}
	slog.Warn("output driver failed, dropping request",
		"error", derr,
		"channel", cs.ch.String(),
		"seq", req.Seq,
	)
	s.record(req, StatusFailed, derr)
	s.transition(cs, Idle, req.Seq)
}

// callback returns a driver completion hook safe for any goroutine.
func (s *Sequencer) callback(ch Channel, token uint64) func(error) {
	return func(err error) {
		s.done.Put(completion{ch: ch, token: token, err: err})
	}
}

func (s *Sequencer) transition(cs *channelState, to State, seq int64) {
	if cs.state == to {
		return
	}
	from := cs.state
	cs.state = to
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(Transition{Channel: cs.ch, From: from, To: to, Seq: seq})
	}
}

func (s *Sequencer) record(req Request, status Status, err error) {
	if s.opts.Recorder == nil {
		return
	}
	r := Record{
		Channel:  req.Channel,
		Seq:      req.Seq,
		Priority: req.Priority,
		Text:     req.Text,
		Language: req.Language,
		Status:   status,
	}
	if err != nil {
		r.Err = err.Error()
	}
	s.opts.Recorder.RecordOutput(r)
}
