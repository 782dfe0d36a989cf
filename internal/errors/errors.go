// Package errors provides the error kinds surfaced to booksearch users.
//
// Usage:
//
//	// Producers return typed errors
//	if !found {
//	    return errors.NotFoundf("search #%d not found", id)
//	}
//
//	// Callers match kinds with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Kind classifies an error for reporting.
type Kind string

// Error kinds.
const (
	KindConfiguration Kind = "configuration"
	KindConnectivity  Kind = "connectivity"
	KindService       Kind = "service"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindStorage       Kind = "storage"
)

// Error is a classified error with a user-facing message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrConfiguration = &Error{Kind: KindConfiguration, Message: "configuration error"}
	ErrConnectivity  = &Error{Kind: KindConnectivity, Message: "connectivity error"}
	ErrService       = &Error{Kind: KindService, Message: "service error"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation    = &Error{Kind: KindValidation, Message: "validation error"}
	ErrStorage       = &Error{Kind: KindStorage, Message: "storage error"}
)

// Configurationf creates a configuration error.
func Configurationf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Connectivity wraps a transport failure.
func Connectivity(msg string, err error) *Error {
	return &Error{Kind: KindConnectivity, Message: msg, cause: err}
}

// Service creates an error carrying a message returned by the remote service.
func Service(msg string) *Error {
	return &Error{Kind: KindService, Message: msg}
}

// Servicef creates a service error with formatted message.
func Servicef(format string, args ...any) *Error {
	return &Error{Kind: KindService, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a filesystem or database failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, cause: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
