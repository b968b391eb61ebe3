// Package apperrors defines the error taxonomy shared by every component:
// missing credentials, upstream service failures, exhausted wait budgets,
// and model replies that break their output contract.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that need to pick a response status
// or decide whether retrying could ever help.
type Code string

const (
	// CodeConfiguration marks a required credential or setting as absent.
	// Never retryable.
	CodeConfiguration Code = "CONFIGURATION"
	// CodeUpstream marks a dependent service returning a failure status or
	// an embedded error payload.
	CodeUpstream Code = "UPSTREAM"
	// CodeTimeout marks a bounded wait (page fetch, poll loop) that
	// exceeded its budget.
	CodeTimeout Code = "TIMEOUT"
	// CodeProtocol marks a model reply that violates its fixed output
	// format. Surfaced as-is, never coerced.
	CodeProtocol Code = "PROTOCOL"
)

// Error is a code-typed application error with an optional cause.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

func Wrap(code Code, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}

// CodeOf extracts the taxonomy code from err, or "" when err is not an
// application error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsConfiguration(err error) bool { return CodeOf(err) == CodeConfiguration }
func IsUpstream(err error) bool      { return CodeOf(err) == CodeUpstream }
func IsTimeout(err error) bool       { return CodeOf(err) == CodeTimeout }
func IsProtocol(err error) bool      { return CodeOf(err) == CodeProtocol }
