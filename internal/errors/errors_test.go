package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Mission not found")
		assert.Equal(t, "NOT_FOUND: Mission not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeUpstreamUnavailable, "Store error", cause)
		assert.Contains(t, err.Error(), "UPSTREAM_UNAVAILABLE")
		assert.Contains(t, err.Error(), "Store error")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "reaction", "reason": "unknown type"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("note", "too long") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("missionId") }, ErrCodeMissingRequired},
		{"InvalidStateTransition", func() *AppError { return InvalidStateTransition("challenge", "pending", "approved") }, ErrCodeInvalidStateTransition},
		{"NotFound", func() *AppError { return NotFound("Mission") }, ErrCodeNotFound},
		{"Expired", func() *AppError { return Expired("Challenge") }, ErrCodeExpired},
		{"InvalidPairingCode", func() *AppError { return InvalidPairingCode() }, ErrCodeInvalidPairingCode},
		{"PairingCodeGone", func() *AppError { return PairingCodeGone() }, ErrCodePairingCodeGone},
		{"CodeCollision", func() *AppError { return CodeCollision() }, ErrCodeCodeCollision},
		{"Blocked", func() *AppError { return Blocked() }, ErrCodeBlocked},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded(time.Minute) }, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestRateLimitExceeded(t *testing.T) {
	err := RateLimitExceeded(42 * time.Second)
	assert.Equal(t, 42*time.Second, err.RetryAfter)
}

func TestFieldDetails(t *testing.T) {
	assert.Equal(t, map[string]string{"field": "missionId"}, MissingRequired("missionId").Details)
	assert.Equal(t, map[string]string{"field": "updateId"}, InvalidInput("updateId", "bad").Details)
}

func TestUpstreamUnavailable(t *testing.T) {
	cause := errors.New("timeout")
	err := UpstreamUnavailable("redis", cause)
	assert.Equal(t, ErrCodeUpstreamUnavailable, err.Code)
	assert.Contains(t, err.Message, "redis")
	assert.Equal(t, cause, err.Unwrap())
}

func TestIsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("complete mission: %w", Blocked())
	assert.True(t, Is(wrapped, ErrCodeBlocked))
	assert.False(t, Is(errors.New("standard error"), ErrCodeBlocked))
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := New(ErrCodeNotFound, "Mission not found")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		extracted, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeBlocked, GetCode(Blocked()))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("standard error")))
}

func TestMissingRequiredMessage(t *testing.T) {
	err := MissingRequired("challengeId")
	assert.Equal(t, "challengeId is required", err.Message)
}
