package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("empty update id always proceeds", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			c, err := f.guard.Claim(ctx, testPairID, "missions", "")
			require.NoError(t, err)
			assert.False(t, c.Duplicate)
		}
		assert.Empty(t, f.mr.Keys())
	})

	t.Run("second claim is a duplicate", func(t *testing.T) {
		first, err := f.guard.Claim(ctx, testPairID, "missions", "u1", "2026-10-14", "m1")
		require.NoError(t, err)
		assert.False(t, first.Duplicate)

		second, err := f.guard.Claim(ctx, testPairID, "missions", "u1", "2026-10-14", "m1")
		require.NoError(t, err)
		assert.True(t, second.Duplicate)

		key := "idem:" + testPairID + ":missions:2026-10-14:m1:u1"
		assert.True(t, f.mr.Exists(key))
		assert.Equal(t, 72*time.Hour, f.mr.TTL(key))
	})

	t.Run("claims are scoped by domain", func(t *testing.T) {
		c, err := f.guard.Claim(ctx, testPairID, "reaction", "u1")
		require.NoError(t, err)
		assert.False(t, c.Duplicate)
	})

	t.Run("stored value is returned to duplicates", func(t *testing.T) {
		_, err := f.guard.ClaimWithValue(ctx, "ch-1", testPairID, "challenge-start", "u2")
		require.NoError(t, err)

		dup, err := f.guard.ClaimWithValue(ctx, "ch-2", testPairID, "challenge-start", "u2")
		require.NoError(t, err)
		assert.True(t, dup.Duplicate)
		assert.Equal(t, "ch-1", dup.Stored)
	})

	t.Run("release lets a retry proceed", func(t *testing.T) {
		c, err := f.guard.Claim(ctx, testPairID, "missions", "u3")
		require.NoError(t, err)
		f.guard.Release(ctx, c)

		retry, err := f.guard.Claim(ctx, testPairID, "missions", "u3")
		require.NoError(t, err)
		assert.False(t, retry.Duplicate)
	})

	t.Run("release ignores duplicates", func(t *testing.T) {
		dup, err := f.guard.Claim(ctx, testPairID, "missions", "u3")
		require.NoError(t, err)
		require.True(t, dup.Duplicate)
		f.guard.Release(ctx, dup)

		again, err := f.guard.Claim(ctx, testPairID, "missions", "u3")
		require.NoError(t, err)
		assert.True(t, again.Duplicate)
	})
}
