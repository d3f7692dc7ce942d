package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("journal: not found")

// SessionInfo describes one session.
type SessionInfo struct {
	ID        string
	Label     string
	StartedAt string
	Outputs   int
	Events    int
}

// OutputEntry is a stored output record.
type OutputEntry struct {
	Step     int64
	Channel  string
	Seq      int64
	Priority string
	Status   string
	Text     string
	Language string
	Err      string
}

// EventEntry is a stored dispatched event.
type EventEntry struct {
	Step    int64
	Kind    string
	Node    string
	Seq     int64
	Merged  int
	Outcome string
}

// Sessions lists sessions oldest first. UUIDv7 ids sort by creation time.
func (j *Journal) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.started_at,
			(SELECT COUNT(*) FROM outputs o WHERE o.session_id = s.id),
			(SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
		FROM sessions s
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var si SessionInfo
		if err := rows.Scan(&si.ID, &si.Label, &si.StartedAt, &si.Outputs, &si.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Session returns one session by id.
func (j *Journal) Session(ctx context.Context, id string) (SessionInfo, error) {
	var si SessionInfo
	err := j.db.QueryRowContext(ctx, `
		SELECT s.id, s.label, s.started_at,
			(SELECT COUNT(*) FROM outputs o WHERE o.session_id = s.id),
			(SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
		FROM sessions s
		WHERE s.id = ?
	`, id).Scan(&si.ID, &si.Label, &si.StartedAt, &si.Outputs, &si.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionInfo{}, fmt.Errorf("query session: %w", err)
	}
	return si, nil
}

// Latest returns the most recent session.
func (j *Journal) Latest(ctx context.Context) (SessionInfo, error) {
	var id string
	err := j.db.QueryRowContext(ctx,
		`SELECT id FROM sessions ORDER BY id COLLATE BINARY DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("latest session: %w", ErrNotFound)
	}
	if err != nil {
		return SessionInfo{}, fmt.Errorf("query latest session: %w", err)
	}
	return j.Session(ctx, id)
}

// Outputs returns a session's output records in step order.
func (j *Journal) Outputs(ctx context.Context, sessionID string) ([]OutputEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT step, channel, seq, priority, status, text, language, error
		FROM outputs
		WHERE session_id = ?
		ORDER BY step ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	entries := []OutputEntry{}
	for rows.Next() {
		var e OutputEntry
		if err := rows.Scan(&e.Step, &e.Channel, &e.Seq, &e.Priority, &e.Status,
			&e.Text, &e.Language, &e.Err); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outputs: %w", err)
	}
	return entries, nil
}

// Events returns a session's dispatched events in step order.
func (j *Journal) Events(ctx context.Context, sessionID string) ([]EventEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT step, kind, node, seq, merged, outcome
		FROM events
		WHERE session_id = ?
		ORDER BY step ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	entries := []EventEntry{}
	for rows.Next() {
		var e EventEntry
		if err := rows.Scan(&e.Step, &e.Kind, &e.Node, &e.Seq, &e.Merged, &e.Outcome); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}
