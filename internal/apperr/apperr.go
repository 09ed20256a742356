// Package apperr provides coded domain errors shared by the journal core and the HTTP layer.
//
// Services return one of the sentinels (or a constructor result carrying a custom
// message); handlers check them with errors.Is or read the Code with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeValidation     Code = "VALIDATION"
	CodeInvalidDate    Code = "INVALID_DATE"
	CodeDuplicateEntry Code = "DUPLICATE_ENTRY"
	CodeStorage        Code = "STORAGE"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeConflict       Code = "CONFLICT"
)

// HTTPStatus returns the HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidDate:
		return http.StatusUnprocessableEntity
	case CodeDuplicateEntry, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of its message.
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

var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidDate    = &Error{Code: CodeInvalidDate, Message: "new entries allowed only for today"}
	ErrDuplicateEntry = &Error{Code: CodeDuplicateEntry, Message: "an entry already exists for this date"}
	ErrStorage        = &Error{Code: CodeStorage, Message: "storage failure"}
	ErrUnauthorized   = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrConflict       = &Error{Code: CodeConflict, Message: "conflict"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error carrying per-field messages.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidDatef creates an invalid date error with a formatted message.
func InvalidDatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidDate, Message: fmt.Sprintf(format, args...)}
}

// DuplicateEntry creates a duplicate entry error, optionally wrapping the storage cause.
func DuplicateEntry(msg string, cause error) *Error {
	return &Error{Code: CodeDuplicateEntry, Message: msg, cause: cause}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Storage wraps a lower-layer persistence error.
func Storage(op string, err error) *Error {
	return &Error{Code: CodeStorage, Message: op, cause: err}
}

// StatusOf returns the HTTP status for err, 500 for anything that is not an *Error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
