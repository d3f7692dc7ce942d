package output

import (
	"errors"
	"fmt"
)

// DriverError wraps a failure reported by a speech or braille driver.
type DriverError struct {
	Channel Channel
	Seq     int64
	Err     error
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	return fmt.Sprintf("DRIVER_FAILURE: %s request %d: %v", e.Channel, e.Seq, e.Err)
}

// Unwrap returns the driver's error.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsDriverFailure reports whether err came from an output driver.
func IsDriverFailure(err error) bool {
	var de *DriverError
	return errors.As(err, &de)
}
