// Package a11y is the object model: one navigable accessibility tree over
// whatever native API a backend speaks.
//
// ARCHITECTURE:
//
// Backends (UI-automation style, legacy, web content, or the in-memory
// simulator) implement the small Backend capability interface. Everything
// above this package is written against Model, never against a backend.
//
// Weak References:
// A Node is a Handle plus the Snapshot read when it was resolved. The native
// subsystem owns the element; the handle may die at any moment (process exit,
// window destroyed). Every Model operation is fallible and returns ErrStale
// in that case.
//
// Bounded Calls:
// Native calls run behind a per-call timeout. Some native APIs block forever
// when the target process hangs, so the call runs on its own goroutine and the
// caller gives up after the budget. A timed-out call returns *TimeoutError,
// which also matches ErrStale: the consumer treats a hung element exactly like
// a dead one. A watchdog caps how many abandoned calls may be outstanding.
//
// Identity:
// Handle equality is authoritative when a backend provides stable handles.
// SameElement is the best-effort fallback (role + name + position).
package a11y
