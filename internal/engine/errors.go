package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidAttempt marks attempts rejected before anything is persisted.
var ErrInvalidAttempt = errors.New("invalid attempt")

// InvalidAttemptError wraps the field-level reason an attempt was rejected.
// It matches ErrInvalidAttempt with errors.Is and unwraps to the cause.
type InvalidAttemptError struct {
	Err error
}

func (e *InvalidAttemptError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidAttempt, e.Err)
}

func (e *InvalidAttemptError) Is(target error) bool { return target == ErrInvalidAttempt }

func (e *InvalidAttemptError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &InvalidAttemptError{Err: err}
}
