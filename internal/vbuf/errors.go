package vbuf

import (
	"errors"
	"fmt"

	"github.com/roach88/aural/internal/a11y"
)

// ErrorCode categorises buffer errors.
type ErrorCode string

const (
	// ErrCodeDetached means the changed subtree or the buffer root no longer
	// exists in the live tree. The caller must rebuild.
	ErrCodeDetached ErrorCode = "DETACHED_SUBTREE"

	// ErrCodeOutOfRange means an offset outside [0, Len()).
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// ErrCodeNotFound means the node or marker is not in the buffer.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// BufferError is returned by Engine and Buffer operations.
type BufferError struct {
	Code    ErrorCode
	Message string
	Node    a11y.Handle
	Offset  int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *BufferError) Error() string {
	switch {
	case e.Code == ErrCodeOutOfRange:
		return fmt.Sprintf("%s: %s (offset=%d)", e.Code, e.Message, e.Offset)
	case !e.Node.IsZero():
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *BufferError) Unwrap() error {
	return e.Err
}

func isCode(err error, code ErrorCode) bool {
	var be *BufferError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// IsDetached reports whether err is a DETACHED_SUBTREE error.
func IsDetached(err error) bool { return isCode(err, ErrCodeDetached) }

// IsOutOfRange reports whether err is an OUT_OF_RANGE error.
func IsOutOfRange(err error) bool { return isCode(err, ErrCodeOutOfRange) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

func detached(h a11y.Handle, msg string, cause error) error {
	return &BufferError{Code: ErrCodeDetached, Message: msg, Node: h, Err: cause}
}

func notFound(h a11y.Handle, msg string) error {
	return &BufferError{Code: ErrCodeNotFound, Message: msg, Node: h}
}

func outOfRange(offset, length int) error {
	return &BufferError{
		Code:    ErrCodeOutOfRange,
		Message: fmt.Sprintf("buffer length is %d", length),
		Offset:  offset,
	}
}
