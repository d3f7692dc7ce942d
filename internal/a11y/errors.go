package a11y

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStale means the native reference is no longer valid.
	// Recoverable: re-resolve or drop the operation.
	ErrStale = errors.New("a11y: stale element reference")

	// ErrNotFound means a handle never resolved to an element.
	ErrNotFound = errors.New("a11y: element not found")

	// ErrBoundary means navigation ran off the edge of the tree.
	ErrBoundary = errors.New("a11y: navigation boundary")

	// ErrTimeout means a native call exceeded its time budget.
	ErrTimeout = errors.New("a11y: native call timed out")

	// ErrUnsupported means the backend lacks an optional capability.
	ErrUnsupported = errors.New("a11y: capability not supported by backend")
)

// TimeoutError reports a native call abandoned after its budget.
// It matches both ErrTimeout and ErrStale with errors.Is.
type TimeoutError struct {
	Op     string
	Handle Handle
	After  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("a11y: %s on %s timed out after %s", e.Op, e.Handle, e.After)
}

// Unwrap exposes both sentinels.
func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, ErrStale}
}

// IsStale reports whether err means the element can no longer be used.
// Timeouts count as stale.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

// IsTimeout reports whether err is a native call timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
