// Package domainerrors carries typed failure codes from the registry to its
// callers. Every failure a caller can branch on has its own Code; transport
// layers map codes to status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// Registry failure kinds.
	CodeNotFound        Code = "not_found"
	CodeAlreadyExists   Code = "already_exists"
	CodeInvalidInterval Code = "invalid_interval"
	CodeNotHolder       Code = "not_holder"
	CodeAlreadySpoiled  Code = "already_spoiled"
	CodeAlreadyExpired  Code = "already_expired"
	CodeNotYetExpired   Code = "not_yet_expired"
	CodeInvalidIdentity Code = "invalid_identity"

	// Input and platform failures.
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded failure. BatchID names the record the failure refers to,
// when there is one.
type Error struct {
	Code    Code
	Message string
	BatchID string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.BatchID != "" {
		msg = fmt.Sprintf("%s (batch %s)", msg, e.BatchID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports code equality so errors.Is(err, New(code, "")) matches any
// error of the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NewFor creates a coded error bound to a batch.
func NewFor(code Code, batchID, msg string) *Error {
	return &Error{Code: code, Message: msg, BatchID: batchID}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the outermost code in err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// BatchIDOf returns the batch id attached to err, if any.
func BatchIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.BatchID
	}
	return ""
}
