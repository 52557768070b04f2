// Package errors provides the typed error codes returned across the approval
// chain engine. Callers branch on Code rather than on message text.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code categorizes an engine error.
type Code string

const (
	// ErrCodeNotFound indicates an identity or record is absent.
	ErrCodeNotFound Code = "NOT_FOUND"

	// ErrCodeInvalidInput indicates a malformed argument.
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// ErrCodeInvalidChain indicates an assembled chain violated a structural invariant.
	ErrCodeInvalidChain Code = "INVALID_CHAIN"

	// ErrCodeUnauthorized indicates the actor does not own the step being decided.
	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// ErrCodeAlreadyDecided indicates a decision on a level that is no longer pending.
	ErrCodeAlreadyDecided Code = "ALREADY_DECIDED"

	// ErrCodeChainConsistencyFault indicates a missing step at an expected level.
	ErrCodeChainConsistencyFault Code = "CHAIN_CONSISTENCY_FAULT"

	// ErrCodeConflict indicates a concurrent modification or an out-of-order decision.
	ErrCodeConflict Code = "CONFLICT"

	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal Code = "INTERNAL"
)

// Error is the typed error carried through the engine.
type Error struct {
	Code    Code
	Message string
	Field   string
	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair for diagnostics and returns e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports that resource id does not exist.
func NotFound(resource, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Details: map[string]string{"resource": resource, "id": id},
	}
}

// InvalidInput reports a bad value for field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: message, Field: field}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
