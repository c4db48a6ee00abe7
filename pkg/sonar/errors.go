package sonar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidUnit indicates the output unit is not supported.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrInvalidConfig indicates sampler parameters are out of range.
	ErrInvalidConfig = errors.New("invalid sampler config")
)

// TimeoutError is returned when no valid frame arrives in time.
// The port has been closed when it's returned.
type TimeoutError struct {
	After time.Duration
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("expected serial data not received in %v", e.After)
}

// Timeout marks the error as a timeout for os.IsTimeout style checks.
func (e *TimeoutError) Timeout() bool {
	return true
}

// IsTimeout checks if err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
