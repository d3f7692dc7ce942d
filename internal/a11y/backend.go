package a11y

import "context"

// Backend is the capability set the core consumes from a native API adapter.
//
// Implementations may block indefinitely on a hung target process; Model
// bounds every call, so adapters need not. Calls on a dead element must
// return an error wrapping ErrStale.
type Backend interface {
	// Kind reports the API kind stamped on handles from this backend.
	Kind() APIKind

	// Snapshot reads the current properties of an element.
	Snapshot(ctx context.Context, h Handle) (Snapshot, error)

	// Parent returns the parent handle, or ErrBoundary at the root.
	Parent(ctx context.Context, h Handle) (Handle, error)

	// Children returns the child handles in document order.
	Children(ctx context.Context, h Handle) ([]Handle, error)
}

// Activator is implemented by backends that can invoke an element's
// default action (press, toggle, follow).
type Activator interface {
	DoDefaultAction(ctx context.Context, h Handle) error
}
