// Package errors provides the typed failures returned by the circulation engine.
//
// Every workflow operation returns either a result or an *Error carrying a
// stable Code. The HTTP layer maps codes to status codes; callers compare with
// errors.Is against the sentinels below:
//
//	if errors.Is(err, errors.ErrOutOfStock) {
//	    // no copy left
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound             Code = "NOT_FOUND"
	CodeOutOfStock           Code = "OUT_OF_STOCK"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodePolicyViolation      Code = "POLICY_VIOLATION"
	CodeRenewalLimitExceeded Code = "RENEWAL_LIMIT_EXCEEDED"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeExpired              Code = "EXPIRED"
	CodeDataIntegrity        Code = "DATA_INTEGRITY"
	CodeValidation           Code = "VALIDATION"
	CodeConflict             Code = "CONFLICT"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeInternal             Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeOutOfStock, CodeInvalidTransition, CodeDataIntegrity, CodeConflict:
		return http.StatusConflict
	case CodePolicyViolation, CodeRenewalLimitExceeded:
		return http.StatusUnprocessableEntity
	case CodeInvalidAmount, CodeValidation:
		return http.StatusBadRequest
	case CodeExpired:
		return http.StatusGone
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
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

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with details attached.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrOutOfStock           = &Error{Code: CodeOutOfStock, Message: "no copy available"}
	ErrInvalidTransition    = &Error{Code: CodeInvalidTransition, Message: "invalid state transition"}
	ErrPolicyViolation      = &Error{Code: CodePolicyViolation, Message: "policy violation"}
	ErrRenewalLimitExceeded = &Error{Code: CodeRenewalLimitExceeded, Message: "renewal limit exceeded"}
	ErrInvalidAmount        = &Error{Code: CodeInvalidAmount, Message: "invalid amount"}
	ErrExpired              = &Error{Code: CodeExpired, Message: "expired"}
	ErrDataIntegrity        = &Error{Code: CodeDataIntegrity, Message: "data integrity error"}
	ErrValidation           = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict             = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal             = &Error{Code: CodeInternal, Message: "internal error"}
)

func newf(code Code, format string, args ...any) *Error {
	if len(args) == 0 {
		return &Error{Code: code, Message: format}
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not found error.
func NotFoundf(format string, args ...any) *Error {
	return newf(CodeNotFound, format, args...)
}

// OutOfStockf creates an out of stock error.
func OutOfStockf(format string, args ...any) *Error {
	return newf(CodeOutOfStock, format, args...)
}

// InvalidTransitionf creates an invalid transition error.
func InvalidTransitionf(format string, args ...any) *Error {
	return newf(CodeInvalidTransition, format, args...)
}

// PolicyViolationf creates a policy violation error.
func PolicyViolationf(format string, args ...any) *Error {
	return newf(CodePolicyViolation, format, args...)
}

// RenewalLimitExceededf creates a renewal limit error.
func RenewalLimitExceededf(format string, args ...any) *Error {
	return newf(CodeRenewalLimitExceeded, format, args...)
}

// InvalidAmountf creates an invalid amount error.
func InvalidAmountf(format string, args ...any) *Error {
	return newf(CodeInvalidAmount, format, args...)
}

// Expiredf creates an expired error.
func Expiredf(format string, args ...any) *Error {
	return newf(CodeExpired, format, args...)
}

// DataIntegrityf creates a data integrity error.
func DataIntegrityf(format string, args ...any) *Error {
	return newf(CodeDataIntegrity, format, args...)
}

// Validationf creates a validation error.
func Validationf(format string, args ...any) *Error {
	return newf(CodeValidation, format, args...)
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflictf creates a conflict error.
func Conflictf(format string, args ...any) *Error {
	return newf(CodeConflict, format, args...)
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Coder is implemented by errors from other layers that carry a Code.
type Coder interface {
	ErrorCode() Code
}

// CodeOf returns the code of the first *Error or Coder in err's chain,
// or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}
