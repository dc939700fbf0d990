package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState signals an action attempted from a stage status that
	// does not permit it. No mutation occurs.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation signals missing or malformed required input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing job or stage.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a conditional update that lost against a
	// concurrent writer (expected prior status no longer held).
	ErrConflict = errors.New("conflict")
)

// InvalidStatef wraps ErrInvalidState with a formatted message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}
