// Package journal keeps a SQLite log of what the runtime said and why.
//
// Each runtime start opens a session. Within a session the journal records
// every output request lifecycle step (submitted, started, completed,
// cancelled, dropped, failed) and every dispatched event with its outcome.
// Entries are ordered by a per-session logical step, never by wall time,
// so two runs of the same scenario produce identical journals.
//
// The runtime records through RecordOutput and RecordEvent, which stamp the
// step and queue the row. A writer goroutine per session does the inserts.
// Flush waits for queued rows; Journal.Close drains every session first.
//
// # Database Configuration
//
//   - WAL mode: `aural trace` can read while a runtime writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Entries must belong to a session
//
// Accessibility snapshots are never stored; only the text that was output
// and the handles events referred to.
package journal
