package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrValidation       = errors.New("validation failed")
)

// Errorf wraps kind with a caller-facing message. errors.Is(err, kind) holds
// for the result and Message(err) recovers the text.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Message returns the caller-facing text of err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	return err.Error()
}

// Kind returns the sentinel err wraps, or nil for unexpected errors.
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound, ErrForbidden, ErrUnauthorized, ErrCapacityExceeded,
		ErrConflict, ErrInvalidState, ErrInvalidRange, ErrValidation,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
