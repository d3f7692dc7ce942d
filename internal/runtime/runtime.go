package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/clock"
	"github.com/roach88/aural/internal/config"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/ids"
	"github.com/roach88/aural/internal/mailbox"
	"github.com/roach88/aural/internal/metrics"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/vbuf"
)

// ErrNotAvailable is returned by user commands that cannot run in the
// current context.
var ErrNotAvailable = errors.New("runtime: not available")

// NotAvailableText is announced when a user command fails.
const NotAvailableText = "not available"

// EventRecorder observes every dispatched event and what became of it.
// Implemented by *journal.Session.
type EventRecorder interface {
	RecordEvent(ev events.Event, outcome string)
}

// Options configures a Runtime. Zero values take package defaults.
type Options struct {
	// Source delivers native events. Defaults to the backend when it
	// implements events.Source.
	Source events.Source

	Speech   output.SpeechDriver
	Braille  output.BrailleDriver
	Detector output.LanguageDetector

	// Recorder observes output lifecycles (journal). Optional.
	Recorder output.Recorder
	// Events observes dispatched events (journal). Optional.
	Events EventRecorder
	// Metrics collects counters. Optional.
	Metrics *metrics.Metrics

	Wall clock.Wall
	IDs  ids.Generator

	DebounceWindow time.Duration
	NormalBound    int
	CallTimeout    time.Duration
	MaxInflight    int
	MaxNodes       int
	MaxDepth       int
}

// OptionsFromConfig copies the tunables of cfg into Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		DebounceWindow: cfg.Queue.DebounceWindow.Std(),
		NormalBound:    cfg.Output.NormalBound,
		CallTimeout:    cfg.Model.CallTimeout.Std(),
		MaxInflight:    cfg.Model.MaxInflight,
		MaxNodes:       cfg.Buffer.MaxNodes,
		MaxDepth:       cfg.Buffer.MaxDepth,
	}
}

// Runtime is the consumer side of the pipeline.
//
// CRITICAL: model, buffer and sequencer state are owned by the goroutine
// running Run (or calling Step). Nothing else may touch them.
type Runtime struct {
	opts     Options
	model    *a11y.Model
	queue    *events.Queue
	engine   *vbuf.Engine
	seq      *output.Sequencer
	commands *mailbox.Box[Command]
	reg      events.Registration

	buf       *vbuf.Buffer
	focus     a11y.Handle
	focusSnap a11y.Snapshot
	review    a11y.Handle
	cursor    int

	closeOnce sync.Once
	closeErr  error

	status atomic.Pointer[Status]
}

// New creates a runtime over backend and subscribes to its events.
func New(backend a11y.Backend, opts Options) (*Runtime, error) {
	if opts.Wall == nil {
		opts.Wall = clock.System{}
	}
	if opts.IDs == nil {
		opts.IDs = ids.UUIDv7{}
	}
	if opts.DebounceWindow < 0 {
		opts.DebounceWindow = 0
	}

	modelOpts := []a11y.ModelOption{}
	if opts.CallTimeout > 0 {
		modelOpts = append(modelOpts, a11y.WithCallTimeout(opts.CallTimeout))
	}
	if opts.MaxInflight > 0 {
		modelOpts = append(modelOpts, a11y.WithMaxInflight(opts.MaxInflight))
	}
	if opts.Metrics != nil {
		modelOpts = append(modelOpts, a11y.WithTimeoutHook(opts.Metrics.Timeout))
	}
	model := a11y.NewModel(backend, modelOpts...)

	var recorders output.Recorders
	if opts.Recorder != nil {
		recorders = append(recorders, opts.Recorder)
	}
	if opts.Metrics != nil {
		recorders = append(recorders, opts.Metrics)
	}

	r := &Runtime{
		opts:  opts,
		model: model,
		queue: events.NewQueue(events.Options{
			DebounceWindow: opts.DebounceWindow,
			Contains:       model.IsAncestor,
			Wall:           opts.Wall,
		}),
		engine: vbuf.NewEngine(model, vbuf.Options{
			MaxNodes: opts.MaxNodes,
			MaxDepth: opts.MaxDepth,
			IDs:      opts.IDs,
		}),
		seq: output.NewSequencer(output.Options{
			NormalBound: opts.NormalBound,
			Speech:      opts.Speech,
			Braille:     opts.Braille,
			Detector:    opts.Detector,
			Recorder:    recorders,
		}),
		commands: mailbox.New[Command](8),
	}

	src := opts.Source
	if src == nil {
		src, _ = backend.(events.Source)
	}
	if src != nil {
		reg, err := src.Subscribe(events.AllKinds(), func(ev events.Event) { r.PostEvent(ev) })
		if err != nil {
			return nil, fmt.Errorf("subscribe to %s events: %w", backend.Kind(), err)
		}
		r.reg = reg
	}

	r.publish()
	return r, nil
}

// PostEvent hands a native event to the queue. Safe from any goroutine.
// Returns false once the runtime is closed.
func (r *Runtime) PostEvent(ev events.Event) bool {
	if !r.queue.Post(ev) {
		return false
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.Posted()
	}
	return true
}

// Post hands a user command to the consumer. Safe from any goroutine.
func (r *Runtime) Post(cmd Command) bool {
	return r.commands.Put(cmd)
}

// Close unsubscribes from the backend and closes the queues. Run returns
// once the remaining events are dispatched. Safe from any goroutine;
// later calls return the first call's error.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		if r.reg != nil {
			r.closeErr = r.reg.Close()
		}
		r.queue.Close()
		r.commands.Close()
	})
	return r.closeErr
}

// Run is the consumer loop. Blocks until ctx is cancelled or Close has been
// called and the queue is drained.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: failures while handling an event are logged and the loop
// moves on to the next event.
func (r *Runtime) Run(ctx context.Context) error {
	slog.Info("runtime starting")

	for {
		if r.Step(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("runtime stopping: context cancelled")
			r.Close()
			r.seq.Cancel(output.Speech)
			r.seq.Cancel(output.Braille)
			return ctx.Err()

		case <-r.queue.Wait():
			if r.queue.Closed() && r.queue.Len() == 0 {
				slog.Info("runtime stopping: queue closed")
				return nil
			}

		case <-r.commands.Wait():
		case <-r.seq.Ready():
		}
	}
}

// Step does one round of work: driver completions, queued events, then
// user commands. Reports whether anything was done.
func (r *Runtime) Step(ctx context.Context) bool {
	worked := r.seq.Pump() > 0

	if r.queue.Len() > 0 {
		evs, st := r.queue.DrainStats(ctx)
		if r.opts.Metrics != nil {
			r.opts.Metrics.Drained(st, r.queue.Len())
		}
		for _, ev := range evs {
			r.dispatch(ctx, ev)
		}
		worked = true
	}

	for _, cmd := range r.commands.TakeAll() {
		if err := r.Execute(ctx, cmd); err != nil {
			slog.Debug("command failed", "command", cmd.String(), "error", err)
		}
		worked = true
	}

	if worked {
		r.publish()
	}
	return worked
}

// Settle steps until there is no immediate work left. Used by the harness
// and tests to run the pipeline to quiescence without a goroutine.
func (r *Runtime) Settle(ctx context.Context) int {
	n := 0
	for r.Step(ctx) {
		n++
	}
	return n
}

// Sequencer exposes output state for inspection.
func (r *Runtime) Sequencer() *output.Sequencer { return r.seq }

// Model exposes the object model.
func (r *Runtime) Model() *a11y.Model { return r.model }

// Buffer returns the current virtual buffer, or nil outside documents.
func (r *Runtime) Buffer() *vbuf.Buffer { return r.buf }
