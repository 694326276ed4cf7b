// Package apperr holds the error kinds shared by the planning and costing engine.
// Callers match kinds with errors.Is; the message carries the specifics.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidState     = errors.New("invalid state")
	ErrConflict         = errors.New("conflict")
	ErrNotSupported     = errors.New("not supported")
)

// Error is a message annotated with one of the kinds above.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Wrap builds an Error of the given kind.
func Wrap(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFound is shorthand for Wrap(ErrNotFound, "<entity> not found").
func NotFound(entity string) error {
	return Wrap(ErrNotFound, "%s not found", entity)
}

// Retryable reports whether the caller may safely retry the operation unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
