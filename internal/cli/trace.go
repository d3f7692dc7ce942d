package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/aural/internal/journal"
	"github.com/roach88/aural/internal/runtime"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	Session string // optional; defaults to the latest session
	List    bool
	Channel string // optional; "speech" or "braille"
}

// TraceEntry is one line of a session timeline: a dispatched event or an
// output record.
type TraceEntry struct {
	Step     int64  `json:"step"`
	Type     string `json:"type"` // "event" or "output"
	Kind     string `json:"kind,omitempty"`
	Node     string `json:"node,omitempty"`
	Merged   int    `json:"merged,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Seq      int64  `json:"seq"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Err      string `json:"error,omitempty"`
}

// TraceStats holds summary counts for a session.
type TraceStats struct {
	Events  int `json:"events"`
	Outputs int `json:"outputs"`
	Dropped int `json:"dropped"`
	Stale   int `json:"stale"`
}

// TraceResult is the full trace of one session.
type TraceResult struct {
	Session   string       `json:"session"`
	Label     string       `json:"label"`
	StartedAt string       `json:"started_at"`
	Timeline  []TraceEntry `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
}

// SessionSummary is one row of --list output.
type SessionSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartedAt string `json:"started_at"`
	Outputs   int    `json:"outputs"`
	Events    int    `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show what a session said and why",
		Long: `Read a journal and print a session's timeline: every dispatched event
with its outcome, interleaved with the speech and braille it produced, in
step order.

Examples:
  aural trace --journal ./aural.db
  aural trace --journal ./aural.db --list
  aural trace --journal ./aural.db --session <id> --channel speech
  aural trace --journal ./aural.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (defaults to the latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list sessions instead of tracing one")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "only show outputs on this channel (speech|braille)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.List {
		return listSessions(ctx, j, opts, cmd.OutOrStdout())
	}

	var info journal.SessionInfo
	if opts.Session != "" {
		info, err = j.Session(ctx, opts.Session)
	} else {
		info, err = j.Latest(ctx)
	}
	if errors.Is(err, journal.ErrNotFound) {
		if opts.Session != "" {
			return WrapExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session), err)
		}
		return WrapExitError(ExitCommandError, "journal has no sessions", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	evs, err := j.Events(ctx, info.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	outs, err := j.Outputs(ctx, info.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outputs", err)
	}

	result := TraceResult{
		Session:   info.ID,
		Label:     info.Label,
		StartedAt: info.StartedAt,
		Timeline:  buildTimeline(evs, outs, opts.Channel),
	}
	result.Stats = traceStats(result.Timeline)

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func listSessions(ctx context.Context, j *journal.Journal, opts *TraceOptions, w io.Writer) error {
	sessions, err := j.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary(s))
	}

	if opts.Format == "json" {
		return outputTraceJSON(w, summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-24s  %3d events  %3d outputs  %s\n",
			s.ID, s.Label, s.Events, s.Outputs, s.StartedAt)
	}
	return nil
}

// buildTimeline merges events and outputs into one step-ordered list.
// Steps come from a single per-session counter, so they never collide.
func buildTimeline(evs []journal.EventEntry, outs []journal.OutputEntry, channel string) []TraceEntry {
	timeline := make([]TraceEntry, 0, len(evs)+len(outs))
	for _, e := range evs {
		timeline = append(timeline, TraceEntry{
			Step:    e.Step,
			Type:    "event",
			Kind:    e.Kind,
			Node:    e.Node,
			Seq:     e.Seq,
			Merged:  e.Merged,
			Outcome: e.Outcome,
		})
	}
	for _, o := range outs {
		if channel != "" && o.Channel != channel {
			continue
		}
		timeline = append(timeline, TraceEntry{
			Step:     o.Step,
			Type:     "output",
			Channel:  o.Channel,
			Seq:      o.Seq,
			Priority: o.Priority,
			Status:   o.Status,
			Text:     o.Text,
			Language: o.Language,
			Err:      o.Err,
		})
	}
	sort.SliceStable(timeline, func(a, b int) bool {
		return timeline[a].Step < timeline[b].Step
	})
	return timeline
}

func traceStats(timeline []TraceEntry) TraceStats {
	var st TraceStats
	for _, e := range timeline {
		switch e.Type {
		case "event":
			st.Events++
			switch e.Outcome {
			case runtime.OutcomeDropped:
				st.Dropped++
			case runtime.OutcomeStale:
				st.Stale++
			}
		case "output":
			st.Outputs++
		}
	}
	return st
}

func outputTraceJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: data})
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Session: %s\n", result.Session)
	if result.Label != "" {
		fmt.Fprintf(w, "Label:   %s\n", result.Label)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Timeline {
		formatTraceEntry(w, e, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Events:  %d\n", result.Stats.Events)
	fmt.Fprintf(w, "  Outputs: %d\n", result.Stats.Outputs)
	fmt.Fprintf(w, "  Dropped: %d\n", result.Stats.Dropped)
	fmt.Fprintf(w, "  Stale:   %d\n", result.Stats.Stale)
	return nil
}

func formatTraceEntry(w io.Writer, e TraceEntry, verbose bool) {
	switch e.Type {
	case "event":
		fmt.Fprintf(w, "  [%d] EVENT %s %s -> %s\n", e.Step, e.Kind, e.Node, e.Outcome)
		if verbose && e.Merged > 0 {
			fmt.Fprintf(w, "       merged: %d\n", e.Merged)
		}
	case "output":
		fmt.Fprintf(w, "  [%d] %s %s %q\n", e.Step, outputLabel(e.Channel), e.Status, e.Text)
		if verbose {
			fmt.Fprintf(w, "       seq=%d priority=%s", e.Seq, e.Priority)
			if e.Language != "" {
				fmt.Fprintf(w, " lang=%s", e.Language)
			}
			fmt.Fprintln(w)
		}
		if e.Err != "" {
			fmt.Fprintf(w, "       error: %s\n", e.Err)
		}
	}
}

func outputLabel(channel string) string {
	switch channel {
	case "speech":
		return "SPEAK"
	case "braille":
		return "BRAILLE"
	default:
		return channel
	}
}
