// Package errs defines the closed set of failure kinds surfaced to the tool boundary.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable failure code. Its string value is what callers see.
type Kind string

const (
	KindAuthRequired    Kind = "AUTH_REQUIRED"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindUpstream        Kind = "ROBINHOOD_ERROR"
	KindNetwork         Kind = "NETWORK_ERROR"
	KindInternal        Kind = "INTERNAL_ERROR"
	KindMethodNotFound  Kind = "METHOD_NOT_FOUND"

	// KindValidation marks a record that failed construction. Services wrap it
	// into KindUpstream before it reaches the boundary.
	KindValidation Kind = "VALIDATION_ERROR"
)

// Error is a typed failure with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func AuthRequired(format string, args ...any) *Error {
	return New(KindAuthRequired, format, args...)
}

func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Upstream(cause error, format string, args ...any) *Error {
	return Wrap(KindUpstream, cause, format, args...)
}

func Network(cause error, format string, args ...any) *Error {
	return Wrap(KindNetwork, cause, format, args...)
}

func MethodNotFound(format string, args ...any) *Error {
	return New(KindMethodNotFound, format, args...)
}

// KindOf returns the kind of the outermost typed error in err's chain.
// Untyped errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
