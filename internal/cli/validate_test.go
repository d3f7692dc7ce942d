package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateMissingArgs(t *testing.T) {
	_, err := executeValidate(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestValidateValidConfig(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/config/valid.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ testdata/config/valid.yaml is valid")
}

func TestValidateValidConfigJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "testdata/config/valid.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateInvalidConfig(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/config/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "is invalid")
	assert.Contains(t, out, "output.braille_width")
	assert.Contains(t, out, "log.level")
}

func TestValidateInvalidConfigJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "testdata/config/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.False(t, resp.Error.Details.Valid)

	fields := make([]string, 0, len(resp.Error.Details.Errors))
	for _, fe := range resp.Error.Details.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "output.braille_width")
	assert.Contains(t, fields, "log.level")
}

func TestValidateUnparseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  colour: blue\n"), 0644))

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "parse config")
}

func TestValidateMissingFile(t *testing.T) {
	out, err := executeValidate(t, "text", "/nonexistent/aural.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
	assert.Contains(t, err.Error(), "config file not found")
}
