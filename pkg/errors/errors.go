package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNavigation    ErrorType = "navigation"
	ErrorTypeOrchestration ErrorType = "orchestration"
	ErrorTypeSession       ErrorType = "session"
	ErrorTypeExtraction    ErrorType = "extraction"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error is a scrape error with type information
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports a malformed or missing request field.
func Validation(msg string) *Error {
	return &Error{Type: ErrorTypeValidation, Message: msg}
}

// Navigation reports a session that never reached a stable page.
func Navigation(msg string, cause error) *Error {
	return &Error{Type: ErrorTypeNavigation, Message: msg, Cause: cause}
}

// Orchestration reports a run in which every worker aborted.
func Orchestration(msg string, cause error) *Error {
	return &Error{Type: ErrorTypeOrchestration, Message: msg, Cause: cause}
}

// Session reports a browser session fault (launch, scroll, capture).
func Session(msg string, cause error) *Error {
	return &Error{Type: ErrorTypeSession, Message: msg, Cause: cause}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return TypeOf(err) == ErrorTypeValidation }

// IsNavigation reports whether err is a NavigationError.
func IsNavigation(err error) bool { return TypeOf(err) == ErrorTypeNavigation }

// IsOrchestration reports whether err is an OrchestrationError.
func IsOrchestration(err error) bool { return TypeOf(err) == ErrorTypeOrchestration }

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeSession:
		return true
	case ErrorTypeValidation, ErrorTypeNavigation, ErrorTypeOrchestration, ErrorTypeExtraction:
		return false
	default:
		return false
	}
}

// HTTPStatus maps an error to the status code the boundary layer returns.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if IsValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
