package tournament

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidState     = errors.New("invalid state")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
)

// Error carries a user facing message that callers may show verbatim.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func permissionDenied(format string, args ...interface{}) error {
	return newError(ErrPermissionDenied, format, args...)
}

func invalidState(format string, args ...interface{}) error {
	return newError(ErrInvalidState, format, args...)
}

func validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func notFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

// corruptRosterError is raised when a user holds more than one membership
// row in a tournament. The duplicates are removed before it reaches callers.
type corruptRosterError struct {
	err        *Error
	duplicates []uint
}

func (e *corruptRosterError) Error() string {
	return e.err.Error()
}

func (e *corruptRosterError) Unwrap() error {
	return e.err
}

const corruptRosterMessage = "This tournament is corrupt. The same user has been added multiple times.  Attempting to fix..."
