// Package domainerrors defines coded errors shared by services and transports.
//
// Services return *Error values so handlers can map them to HTTP responses
// without inspecting messages. Stores never return these directly; they return
// sentinel errors (see pkg/platform/sentinel) that services translate.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Lifecycle conflicts.
	CodeInvalidState        Code = "invalid_state"
	CodeNotStarted          Code = "not_started"
	CodeNotOpen             Code = "not_open"
	CodeDuplicate           Code = "duplicate"
	CodeCapacity            Code = "capacity"
	CodeNotRegistered       Code = "not_registered"
	CodeAlreadyCheckedIn    Code = "already_checked_in"
	CodeMissingPrerequisite Code = "missing_prerequisite"
	CodeAlreadyIssued       Code = "already_issued"

	// Check-in rejections the volunteer can act on.
	CodeInvalidCode     Code = "invalid_code"
	CodeOutOfRange      Code = "out_of_range"
	CodeTooManyAttempts Code = "too_many_attempts"
)

// Category groups codes into the failure taxonomy callers reason about.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryNotFound       Category = "not_found"
	CategoryStateConflict  Category = "state_conflict"
	CategoryUserActionable Category = "user_actionable"
	CategoryCapacity       Category = "capacity"
	CategoryAuth           Category = "auth"
	CategoryTransient      Category = "transient"
	CategoryInternal       Category = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is reports whether err is a domain error with the given code.
// Kept alongside HasCode for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// CategoryOf places a code in the failure taxonomy.
func CategoryOf(code Code) Category {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeInvariantViolation:
		return CategoryValidation
	case CodeNotFound:
		return CategoryNotFound
	case CodeInvalidState, CodeNotStarted, CodeNotOpen, CodeDuplicate, CodeNotRegistered,
		CodeAlreadyCheckedIn, CodeMissingPrerequisite, CodeAlreadyIssued, CodeConflict:
		return CategoryStateConflict
	case CodeInvalidCode, CodeOutOfRange, CodeTooManyAttempts:
		return CategoryUserActionable
	case CodeCapacity:
		return CategoryCapacity
	case CodeUnauthorized, CodeForbidden:
		return CategoryAuth
	case CodeTimeout:
		return CategoryTransient
	default:
		return CategoryInternal
	}
}

// Retryable reports whether a caller may retry the same request unchanged.
// Every domain failure is a deterministic function of persisted state, so
// only transient contention qualifies.
func Retryable(err error) bool {
	return CategoryOf(CodeOf(err)) == CategoryTransient
}

// ToHTTPStatus maps a code to the HTTP status used by transports.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeInvalidCode, CodeOutOfRange, CodeNotRegistered:
		return http.StatusForbidden
	case CodeConflict, CodeInvalidState, CodeNotStarted, CodeNotOpen, CodeDuplicate,
		CodeCapacity, CodeAlreadyCheckedIn, CodeMissingPrerequisite, CodeAlreadyIssued:
		return http.StatusConflict
	case CodeTooManyAttempts:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
