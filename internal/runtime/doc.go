// Package runtime wires the pipeline together: native events flow through
// the queue to a single consumer goroutine that resolves nodes, patches the
// virtual buffer and schedules speech and braille.
//
// Thread-safety model:
//   - PostEvent, Post: safe from any goroutine
//   - Run, Step and the command methods (Navigate, ReadCurrentLine, ...):
//     consumer goroutine only
//   - Status: safe from any goroutine (published after each step)
//
// Errors on the event path never stop the loop. A failed read means that
// event produces no output. User commands that fail announce
// "not available" and return the error.
package runtime
