package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pairsync/sync-server/internal/errors"
)

func TestRateLimiter_CheckLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := testNow
	f.limiter.now = func() time.Time { return now }

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, _, err := f.limiter.CheckLimit(ctx, "test:user1", 3, 10*time.Second)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, resetAt, err := f.limiter.CheckLimit(ctx, "test:user1", 3, 10*time.Second)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.True(t, resetAt.After(now))
	})

	t.Run("sliding window", func(t *testing.T) {
		allowed, _, _ := f.limiter.CheckLimit(ctx, "test:user2", 2, 2*time.Second)
		assert.True(t, allowed)
		allowed, _, _ = f.limiter.CheckLimit(ctx, "test:user2", 2, 2*time.Second)
		assert.True(t, allowed)
		allowed, _, _ = f.limiter.CheckLimit(ctx, "test:user2", 2, 2*time.Second)
		assert.False(t, allowed)

		now = now.Add(3 * time.Second)
		allowed, _, _ = f.limiter.CheckLimit(ctx, "test:user2", 2, 2*time.Second)
		assert.True(t, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		allowed, _, _ := f.limiter.CheckLimit(ctx, "test:user3", 1, time.Minute)
		assert.True(t, allowed)
		allowed, _, _ = f.limiter.CheckLimit(ctx, "test:user4", 1, time.Minute)
		assert.True(t, allowed)
	})
}

func TestRateLimiter_Enforce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.limiter.Enforce(ctx, "enforce", 1, time.Minute))

	err := f.limiter.Enforce(ctx, "enforce", 1, time.Minute)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, appErr.Code)
	assert.Equal(t, 61*time.Second, appErr.RetryAfter)

	f.mr.SetError("down")
	defer f.mr.SetError("")
	err = f.limiter.Enforce(ctx, "enforce", 1, time.Minute)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpstreamUnavailable))
}
