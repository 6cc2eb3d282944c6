package errors

import (
	"fmt"
	"net/http"
)

// Error codes surfaced in the response envelope
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAuthorization = "AUTHORIZATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	CodeInternal      = "SERVER_ERROR"
)

// AppError is an application error carrying the HTTP status code to respond
// with and the error code reported in the response envelope.
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"error"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewValidationError creates a 400 error for missing or malformed input
func NewValidationError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeValidation, message)
}

// NewAuthorizationError creates a 403 error for role violations
func NewAuthorizationError(message string) *AppError {
	return NewError(http.StatusForbidden, CodeAuthorization, message)
}

// NewNotFoundError creates a 404 error for unknown records
func NewNotFoundError(message string) *AppError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

// NewConflictError creates a 409 error for an invalid state transition
func NewConflictError(message string) *AppError {
	return NewError(http.StatusConflict, CodeConflict, message)
}

// NewUpstreamError creates a 502 error for an external service failure
func NewUpstreamError(message string) *AppError {
	return NewError(http.StatusBadGateway, CodeUpstream, message)
}

// NewInternalError creates a 500 error
func NewInternalError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeInternal, message)
}

// FromError converts a standard error to an AppError.
// If the error is already an AppError it is returned as-is; anything else is
// wrapped as an internal error so no raw error text escapes the envelope
// unclassified.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(fmt.Sprintf("An unexpected error occurred: %s", err.Error()))
}

// Is checks whether err is an AppError with the given code
func Is(err error, code string) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Code == code
}

// GetStatusCode extracts the HTTP status code from an error, returns 500 if
// it is not an AppError
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
