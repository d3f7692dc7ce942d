package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/aural/internal/clock"
	"github.com/roach88/aural/internal/ids"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added idx_events_session
const currentSchemaVersion = 1

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// Journal is the durable output log.
type Journal struct {
	db   *sql.DB
	ids  ids.Generator
	wall clock.Wall

	mu       sync.Mutex
	sessions []*Session
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDs sets the session id generator. Defaults to UUIDv7.
func WithIDs(g ids.Generator) Option {
	return func(j *Journal) { j.ids = g }
}

// WithWall sets the clock for session start times.
func WithWall(w clock.Wall) Option {
	return func(j *Journal) { j.wall = w }
}

// Open creates or opens a journal database at path. Applies required
// pragmas and migrations automatically. Idempotent.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite allows one writer; one connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	j := &Journal{db: db, ids: ids.UUIDv7{}, wall: clock.System{}}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close flushes and stops every session, then closes the database
// connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	sessions := j.sessions
	j.sessions = nil
	j.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}

	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Begin opens a new session.
func (j *Journal) Begin(ctx context.Context, label string) (*Session, error) {
	id := j.ids.Generate()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (id, label, started_at) VALUES (?, ?, ?)`,
		id, label, j.wall.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	s := newSession(j, id)
	j.mu.Lock()
	j.sessions = append(j.sessions, s)
	j.mu.Unlock()
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes events by session for `aural trace`.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_session
		ON events(session_id, step)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (j *Journal) verifyPragma(name, expected string) error {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
