package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired        ErrorCode = "MISSING_REQUIRED"
	ErrCodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeExpired  ErrorCode = "EXPIRED"

	// Pairing
	ErrCodeInvalidPairingCode ErrorCode = "INVALID_PAIRING_CODE"
	ErrCodePairingCodeGone    ErrorCode = "PAIRING_CODE_GONE"
	ErrCodeCodeCollision      ErrorCode = "CODE_COLLISION"

	// Access
	ErrCodeBlocked ErrorCode = "BLOCKED"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	Details    any           `json:"details,omitempty"`
	RetryAfter time.Duration `json:"-"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason)).
		WithDetails(map[string]string{"field": field})
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field)).
		WithDetails(map[string]string{"field": field})
}

func InvalidStateTransition(resource, from, to string) *AppError {
	return New(ErrCodeInvalidStateTransition, fmt.Sprintf("%s cannot move from %s to %s", resource, from, to))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Expired(resource string) *AppError {
	return New(ErrCodeExpired, fmt.Sprintf("%s not found or expired", resource))
}

func InvalidPairingCode() *AppError {
	return New(ErrCodeInvalidPairingCode, "Invalid or expired code")
}

func PairingCodeGone() *AppError {
	return New(ErrCodePairingCodeGone, "Pairing code expired or unknown")
}

func CodeCollision() *AppError {
	return New(ErrCodeCodeCollision, "Pairing code collision, retry")
}

func Blocked() *AppError {
	return New(ErrCodeBlocked, "Partner disconnected")
}

func RateLimitExceeded(retryAfter time.Duration) *AppError {
	err := New(ErrCodeRateLimitExceeded, "Too many requests. Please try again later.")
	err.RetryAfter = retryAfter
	return err
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func UpstreamUnavailable(service string, cause error) *AppError {
	return Wrap(ErrCodeUpstreamUnavailable, fmt.Sprintf("%s unavailable", service), cause)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
