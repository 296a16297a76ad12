// Package apperr defines the error taxonomy shared by the encounter server.
package apperr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeInternal marks storage or other unexpected failures.
	CodeInternal Code = "INTERNAL"
	// CodeNotFound marks an unresolved encounter, participant, NPC or player reference.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation marks a missing required field or a malformed value.
	CodeValidation Code = "VALIDATION"
	// CodeEconomyViolation marks an action or bonus action already spent this turn.
	CodeEconomyViolation Code = "ECONOMY_VIOLATION"
	// CodeConflict marks a second active encounter or a stale write.
	CodeConflict Code = "CONFLICT"
)

// GRPCCode maps a domain code to the gRPC status code used on the wire.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound
	case CodeValidation:
		return codes.InvalidArgument
	case CodeEconomyViolation:
		return codes.FailedPrecondition
	case CodeConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// Error is the domain error type.
type Error struct {
	Code    Code
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

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// GRPCStatus lets status.FromError recover the mapped code.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code.GRPCCode(), e.Error())
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrValidation       = &Error{Code: CodeValidation}
	ErrEconomyViolation = &Error{Code: CodeEconomyViolation}
	ErrConflict         = &Error{Code: CodeConflict}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound formats a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, fmt.Sprintf(format, args...))
}

// Validation formats a VALIDATION error.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// Economy formats an ECONOMY_VIOLATION error.
func Economy(format string, args ...any) *Error {
	return New(CodeEconomyViolation, fmt.Sprintf(format, args...))
}

// Conflict formats a CONFLICT error.
func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, fmt.Sprintf(format, args...))
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
