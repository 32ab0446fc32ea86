package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusMap maps error codes to HTTP status codes.
// Duplicate usernames and failed logins both answer 400: the public API
// contract distinguishes them by code, not by status.
var HTTPStatusMap = map[ErrorCode]int{
	CodeValidation:         http.StatusBadRequest,
	CodeConflict:           http.StatusBadRequest,
	CodeInvalidCredentials: http.StatusBadRequest,
	CodeUnauthenticated:    http.StatusUnauthorized,
	CodeNotFound:           http.StatusNotFound,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeBadRequest:         http.StatusBadRequest,
	CodeInternalError:      http.StatusInternalServerError,
}

// ErrorResponse represents the standardized error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
		TraceID string    `json:"trace_id,omitempty"`
	} `json:"error"`
}

// AppError represents an application error with code and message
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ToErrorResponse converts AppError to ErrorResponse. The cause is never
// serialized, so raw store errors stay out of client-visible bodies.
func (e *AppError) ToErrorResponse(traceID string) ErrorResponse {
	resp := ErrorResponse{}
	resp.Error.Code = e.Code
	resp.Error.Message = e.Message
	resp.Error.TraceID = traceID
	return resp
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	if status, exists := HTTPStatusMap[e.Code]; exists {
		return status
	}
	return http.StatusInternalServerError
}

// AsAppError extracts an AppError from an error chain. Unknown errors come
// back as internal ones with a generic client-facing message.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(CodeInternalError, "Internal server error", err)
}

// Wrap wraps an error with additional context, preserving its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return New(appErr.Code, message, err)
	}
	return New(CodeInternalError, message, err)
}
