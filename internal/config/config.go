// Package config loads and validates runtime configuration.
//
// A config file is YAML decoded over Default(), then checked against an
// embedded CUE schema. Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/events"
	"github.com/roach88/aural/internal/output"
	"github.com/roach88/aural/internal/vbuf"
)

// Duration is a time.Duration written as a Go duration string ("30ms").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"30ms\"", value.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the runtime configuration.
type Config struct {
	Queue   QueueConfig   `yaml:"queue"`
	Output  OutputConfig  `yaml:"output"`
	Model   ModelConfig   `yaml:"model"`
	Buffer  BufferConfig  `yaml:"buffer"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
	Debug   DebugConfig   `yaml:"debug"`
}

type QueueConfig struct {
	DebounceWindow Duration `yaml:"debounce_window"`
}

type OutputConfig struct {
	NormalBound  int      `yaml:"normal_bound"`
	BrailleWidth int      `yaml:"braille_width"`
	AutoLanguage bool     `yaml:"auto_language"`
	Languages    []string `yaml:"languages"`
}

type ModelConfig struct {
	CallTimeout Duration `yaml:"call_timeout"`
	MaxInflight int      `yaml:"max_inflight"`
}

type BufferConfig struct {
	MaxNodes int `yaml:"max_nodes"`
	MaxDepth int `yaml:"max_depth"`
}

type JournalConfig struct {
	// Path is a SQLite file, ":memory:", or empty to disable the journal.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DebugConfig struct {
	// Addr is the debug HTTP listen address; empty disables the server.
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Queue: QueueConfig{
			DebounceWindow: Duration(events.DefaultDebounceWindow),
		},
		Output: OutputConfig{
			NormalBound:  output.DefaultNormalBound,
			BrailleWidth: output.DefaultBrailleWidth,
			Languages:    []string{"en", "de", "fr", "es"},
		},
		Model: ModelConfig{
			CallTimeout: Duration(a11y.DefaultCallTimeout),
			MaxInflight: a11y.DefaultMaxInflight,
		},
		Buffer: BufferConfig{
			MaxNodes: vbuf.DefaultMaxNodes,
			MaxDepth: vbuf.DefaultMaxDepth,
		},
		Journal: JournalConfig{Path: ":memory:"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path, decodes it over Default() and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// YAML renders the config as it would appear in a file.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
