package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/aural/internal/backend/sim"
	"github.com/roach88/aural/internal/journal"
	"github.com/roach88/aural/internal/metrics"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/runtime"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal   string
	DebugAddr string
	Label     string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <tree.yaml>",
		Short: "Run the pipeline over a simulated tree",
		Long: `Run the screen-reader pipeline over a simulated accessibility tree.

Speech and braille are printed to stdout. Lines read from stdin drive the
session:

  focus <id>            move keyboard focus in the tree
  type <id> <text>      replace a text node's content
  nav <direction>       navigate the review object
  activate              default action of the review object
  line                  read the line at the review cursor
  landmark [kind]       jump to the next landmark (main, navigation, ...)
  next|prev <marker>    jump between headings, lists, tables, form fields
  silence               stop speech
  scroll [delta]        scroll the braille display
  quit                  stop

Example:
  aural run ./page.yaml
  aural run ./page.yaml --journal ./aural.db --debug-addr 127.0.0.1:6060`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (overrides config; \"\" keeps the config value)")
	cmd.Flags().StringVar(&opts.DebugAddr, "debug-addr", "", "debug HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "session label recorded in the journal (defaults to the tree file)")

	return cmd
}

func runPipeline(opts *RunOptions, treePath string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Journal != "" {
		cfg.Journal.Path = opts.Journal
	}
	if opts.DebugAddr != "" {
		cfg.Debug.Addr = opts.DebugAddr
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose)

	tree, err := sim.LoadFile(treePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load tree", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	reg := prometheus.NewRegistry()
	rtOpts := runtime.OptionsFromConfig(cfg)
	rtOpts.Speech = NewConsoleSpeech(cmd.OutOrStdout())
	rtOpts.Braille = NewConsoleBraille(cmd.OutOrStdout(), cfg.Output.BrailleWidth)
	rtOpts.Metrics = metrics.New(reg)

	if cfg.Output.AutoLanguage {
		det, err := output.NewLinguaDetector(cfg.Output.Languages)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build language detector", err)
		}
		rtOpts.Detector = det
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()

		label := opts.Label
		if label == "" {
			label = treePath
		}
		sess, err := j.Begin(ctx, label)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal session", err)
		}
		rtOpts.Recorder = sess
		rtOpts.Events = sess
		slog.Info("journal session started", "path", cfg.Journal.Path, "session", sess.ID())
	}

	rt, err := runtime.New(tree, rtOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start runtime", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Debug.Addr != "" {
		go serveDebug(ctx, cfg.Debug.Addr, NewDebugHandler(rt, reg))
	}

	go readInput(cmd.InOrStdin(), rt, tree, cmd.ErrOrStderr())

	if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "runtime error", err)
	}
	slog.Info("runtime stopped")
	return nil
}

// readInput turns input lines into tree mutations and runtime commands.
// The runtime is closed when input ends.
func readInput(r io.Reader, rt *runtime.Runtime, tree *sim.Tree, errw io.Writer) {
	defer rt.Close()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" {
			return
		}
		if err := handleInput(line, rt, tree); err != nil {
			fmt.Fprintf(errw, "error: %v\n", err)
		}
	}
	if err := sc.Err(); err != nil {
		slog.Warn("input read failed", "error", err)
	}
}

func handleInput(line string, rt *runtime.Runtime, tree *sim.Tree) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "focus":
		if len(fields) != 2 {
			return fmt.Errorf("focus: want one node id")
		}
		return tree.Focus(fields[1])
	case "type":
		if len(fields) < 3 {
			return fmt.Errorf("type: want a node id and text")
		}
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(line, "type")), fields[1]))
		return tree.SetText(fields[1], text)
	}

	cmd, err := runtime.ParseCommand(line)
	if err != nil {
		return err
	}
	if !rt.Post(cmd) {
		return fmt.Errorf("runtime closed")
	}
	return nil
}
