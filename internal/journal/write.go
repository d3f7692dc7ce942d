package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/aural/internal/clock"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/mailbox"
	"github.com/roach88/aural/internal/output"
)

// entry is one queued row. A flush entry carries no row and is closed once
// everything ahead of it is written.
type entry struct {
	step    int64
	output  *output.Record
	event   *events.Event
	outcome string
	flushed chan struct{}
}

// Session appends entries for one runtime start. Writes are ordered by a
// per-session step counter shared by outputs and events.
//
// RecordOutput and RecordEvent only stamp a step and queue the row; a
// writer goroutine owns the database calls, so a slow disk or a locked
// file never stalls the consumer.
//
// Thread-safety: Record*, Flush and Close are safe from any goroutine.
type Session struct {
	journal *Journal
	id      string
	step    *clock.Sequence
	pending *mailbox.Box[entry]
	done    chan struct{}
}

func newSession(j *Journal, id string) *Session {
	s := &Session{
		journal: j,
		id:      id,
		step:    clock.NewSequence(),
		pending: mailbox.New[entry](64),
		done:    make(chan struct{}),
	}
	go s.writer()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// writer drains queued rows until the session is closed and empty.
func (s *Session) writer() {
	defer close(s.done)
	for {
		<-s.pending.Wait()
		for _, e := range s.pending.TakeAll() {
			s.write(e)
		}
		if s.pending.Closed() && s.pending.Len() == 0 {
			return
		}
	}
}

func (s *Session) write(e entry) {
	ctx := context.Background()
	switch {
	case e.flushed != nil:
		close(e.flushed)
	case e.output != nil:
		if err := s.insertOutput(ctx, e.step, *e.output); err != nil {
			slog.Warn("journal write failed", "session", s.id, "seq", e.output.Seq, "error", err)
		}
	case e.event != nil:
		if err := s.insertEvent(ctx, e.step, *e.event, e.outcome); err != nil {
			slog.Warn("journal write failed", "session", s.id, "event_seq", e.event.Seq, "error", err)
		}
	}
}

// Flush blocks until every row recorded before the call is written.
func (s *Session) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	if !s.pending.Put(entry{flushed: flushed}) {
		// Closed: the writer drains what is left before it exits.
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes the queued rows and stops the writer. Later records are
// dropped. Idempotent.
func (s *Session) Close() error {
	s.pending.Close()
	<-s.done
	return nil
}

// WriteOutput appends one output lifecycle record synchronously.
func (s *Session) WriteOutput(ctx context.Context, r output.Record) error {
	return s.insertOutput(ctx, s.step.Next(), r)
}

// WriteEvent appends one dispatched event and what the runtime did with it,
// synchronously.
func (s *Session) WriteEvent(ctx context.Context, ev events.Event, outcome string) error {
	return s.insertEvent(ctx, s.step.Next(), ev, outcome)
}

func (s *Session) insertOutput(ctx context.Context, step int64, r output.Record) error {
	_, err := s.journal.db.ExecContext(ctx, `
		INSERT INTO outputs
		(session_id, step, channel, seq, priority, status, text, language, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.id,
		step,
		r.Channel.String(),
		r.Seq,
		r.Priority.String(),
		string(r.Status),
		r.Text,
		r.Language,
		r.Err,
	)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (s *Session) insertEvent(ctx context.Context, step int64, ev events.Event, outcome string) error {
	_, err := s.journal.db.ExecContext(ctx, `
		INSERT INTO events
		(session_id, step, kind, node, seq, merged, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		s.id,
		step,
		ev.Kind.String(),
		ev.Node.String(),
		ev.Seq,
		ev.Merged,
		outcome,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// RecordOutput implements output.Recorder. The row is written in the
// background; failures are logged and the journal never blocks output.
func (s *Session) RecordOutput(r output.Record) {
	step := s.step.Next()
	if !s.pending.Put(entry{step: step, output: &r}) {
		slog.Warn("journal session closed, output dropped", "session", s.id, "seq", r.Seq)
	}
}

// RecordEvent queues a dispatched event like RecordOutput.
func (s *Session) RecordEvent(ev events.Event, outcome string) {
	step := s.step.Next()
	if !s.pending.Put(entry{step: step, event: &ev, outcome: outcome}) {
		slog.Warn("journal session closed, event dropped", "session", s.id, "event_seq", ev.Seq)
	}
}
