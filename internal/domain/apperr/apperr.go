// internal/domain/apperr/apperr.go

// Package apperr defines the typed errors the engines raise for
// precondition failures. Every error carries a machine code that the
// RPC layer maps onto an HTTP status, plus a human-readable message.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error class.
type Code string

const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeBadRequest Code = "BAD_REQUEST"
	CodeForbidden  Code = "FORBIDDEN"
	CodeInternal   Code = "INTERNAL_SERVER_ERROR"
)

// Error is a typed application error. Cause is optional and preserved
// for errors.Is/errors.As chains.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NotFound reports a missing (or archived-and-hidden) entity.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// BadRequest reports an operation attempted against an entity whose
// state forbids it (archived edits, cycle-creating moves, budget
// overruns, and so on).
func BadRequest(msg string) *Error {
	return &Error{Code: CodeBadRequest, Message: msg}
}

// Forbidden reports a policy denial for the acting user.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Internal wraps an unexpected failure from a collaborator (usually the
// persistence layer) with cause-chaining.
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Cause: cause}
}

// CodeOf extracts the machine code from err, walking the wrap chain.
// Unrecognized errors are classified as internal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// MessageOf returns the human-readable message for err. Unrecognized
// errors get a generic message so internal details never leak to
// clients.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
