// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by layer.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Driver / connection lifecycle (5xx). PoolExhausted is retryable
	// with backoff; ConnectionFailed is fatal to the current request.
	CodePoolExhausted    = "POOL_EXHAUSTED"
	CodeConnectionFailed = "CONNECTION_FAILED"

	// Transaction lifecycle (5xx). CommitFailed means one of several
	// commits failed after others succeeded: a partial-success condition,
	// not a rolled-back failure. AbortFailed is cleanup-only and never
	// masks the error that triggered the abort.
	CodeTxStartFailed = "TX_START_FAILED"
	CodeCommitFailed  = "COMMIT_FAILED"
	CodeAbortFailed   = "ABORT_FAILED"

	// Cache (5xx for unavailable; miss is a branch, not a failure)
	CodeCacheMiss        = "CACHE_MISS"
	CodeCacheUnavailable = "CACHE_UNAVAILABLE"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Authentication (401, 403, 429)
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeTooManyAttempts = "TOO_MANY_ATTEMPTS"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, identifiers, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewTooManyAttempts creates a rate-limit error (429).
// No internal throttle state is leaked to the client.
func NewTooManyAttempts() *AppError {
	return &AppError{
		Code:       CodeTooManyAttempts,
		Message:    "Too many attempts, try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewPoolExhausted creates a pool-timeout error (503).
// Callers may retry with backoff.
func NewPoolExhausted(backend string, err error) *AppError {
	return &AppError{
		Code:       CodePoolExhausted,
		Message:    "Service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"backend": backend},
		Err:        err,
	}
}

// NewConnectionFailed creates a connection-establishment error (503).
func NewConnectionFailed(backend string, err error) *AppError {
	return &AppError{
		Code:       CodeConnectionFailed,
		Message:    "Service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"backend": backend},
		Err:        err,
	}
}

// NewTxStartFailed creates a transaction-start error (500).
func NewTxStartFailed(backend string, err error) *AppError {
	return &AppError{
		Code:       CodeTxStartFailed,
		Message:    "Failed to start transaction",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"backend": backend},
		Err:        err,
	}
}

// NewCommitFailed creates a commit error (500). Earlier commits in the same
// scope remain committed; callers must treat this as a durability risk.
func NewCommitFailed(backend string, err error) *AppError {
	return &AppError{
		Code:       CodeCommitFailed,
		Message:    "Failed to commit transaction",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"backend": backend},
		Err:        err,
	}
}

// NewAbortFailed creates an abort error. Only ever logged during cleanup;
// it indicates a potentially leaked lock on the backend.
func NewAbortFailed(backend string, err error) *AppError {
	return &AppError{
		Code:       CodeAbortFailed,
		Message:    "Failed to abort transaction",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"backend": backend},
		Err:        err,
	}
}

// NewCacheMiss reports an absent key. A branch condition, not a failure.
func NewCacheMiss(key string) *AppError {
	return &AppError{
		Code:       CodeCacheMiss,
		Message:    "Key not found in cache",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"key": key},
	}
}

// NewCacheUnavailable reports an unreachable cache. Never to be conflated
// with a miss: fail-open vs fail-closed is the caller's policy call.
func NewCacheUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeCacheUnavailable,
		Message:    "Cache unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks whether err carries the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConflict checks if error is CodeConflict
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict)
}

// IsCacheMiss checks if error is CodeCacheMiss
func IsCacheMiss(err error) bool {
	return IsCode(err, CodeCacheMiss)
}

// IsPoolExhausted checks if error is CodePoolExhausted
func IsPoolExhausted(err error) bool {
	return IsCode(err, CodePoolExhausted)
}
