package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aural/internal/backend/sim"
	"github.com/roach88/aural/internal/runtime"
)

// executeRun runs the pipeline over testdata/page.yaml, feeding input as
// stdin, and returns stdout.
func executeRun(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "testdata/page.yaml"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestRunMissingTree(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"/nonexistent/tree.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load tree")
}

func TestRunBadConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text", Config: "testdata/config/invalid.yaml"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"testdata/page.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunSpeaksFocusAndLine(t *testing.T) {
	out, err := executeRun(t, "focus agree\nline\nquit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "speech I agree check box not checked")
	assert.Contains(t, out, "speech I agree\n")
}

func TestRunIgnoresCommentsAndBadInput(t *testing.T) {
	out, err := executeRun(t, "# a comment\n\nfocus\nbogus\nfocus home\n")
	require.NoError(t, err)
	assert.Contains(t, out, "speech Home link")
}

func TestRunJournalsSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "aural.db")
	_, err := executeRun(t, "focus agree\nfocus home\nquit\n", "--journal", dbPath, "--label", "checkbox")
	require.NoError(t, err)

	out, err := executeTrace(t, "text", "--journal", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Label:   checkbox")
	assert.Contains(t, out, "EVENT focus sim:agree -> announced")
	assert.Contains(t, out, `"I agree check box not checked"`)
	assert.Contains(t, out, "EVENT focus sim:home -> announced")
	assert.Contains(t, out, `"Home link"`)
}

func TestHandleInput(t *testing.T) {
	tree, err := sim.LoadFile("testdata/page.yaml")
	require.NoError(t, err)
	defer tree.Kill()

	rt, err := runtime.New(tree, runtime.Options{})
	require.NoError(t, err)
	defer rt.Close()

	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{"focus", "focus home", ""},
		{"focus without id", "focus", "focus: want one node id"},
		{"focus unknown", "focus nowhere", `focus "nowhere"`},
		{"type", "type t1 Hello again", ""},
		{"type without text", "type t1", "type: want a node id and text"},
		{"command", "next heading", ""},
		{"unknown command", "dance", `unknown command "dance"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleInput(tt.line, rt, tree)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	rt.Settle(context.Background())
	snap, err := tree.Snapshot(context.Background(), sim.Handle("t1"))
	require.NoError(t, err)
	assert.Equal(t, "Hello again", snap.Text)
	assert.Equal(t, "home", tree.Focused())
}
