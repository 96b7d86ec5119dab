package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/sse"
)

func TestBlocklistService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := redisclient.BlocklistKey(testPairID)

	require.NoError(t, f.blocklist.CheckNotBlocked(ctx, testPairID))

	t.Run("unlink blocks the pair", func(t *testing.T) {
		require.NoError(t, f.blocklist.Unlink(ctx, testPairID))

		err := f.blocklist.CheckNotBlocked(ctx, testPairID)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeBlocked))
		assert.Equal(t, 48*time.Hour, f.mr.TTL(key))
		assert.Contains(t, f.publisher.types(), "unlinked")
	})

	t.Run("repeat unlink refreshes the ttl", func(t *testing.T) {
		f.mr.FastForward(10 * time.Hour)
		require.NoError(t, f.blocklist.Unlink(ctx, testPairID))
		assert.Equal(t, 48*time.Hour, f.mr.TTL(key))

		remaining, err := f.blocklist.Remaining(ctx, testPairID)
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, remaining)
	})

	t.Run("block lapses after the ttl", func(t *testing.T) {
		f.mr.FastForward(48*time.Hour + time.Second)
		assert.NoError(t, f.blocklist.CheckNotBlocked(ctx, testPairID))
	})

	t.Run("rejects malformed pair ids", func(t *testing.T) {
		for _, id := range []string{"", "anon", "not-a-uuid"} {
			err := f.blocklist.Unlink(ctx, id)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput), id)
		}
	})
}

func TestBlocklistService_FailsClosed(t *testing.T) {
	f := newFixture(t)
	f.mr.SetError("connection reset")
	defer f.mr.SetError("")

	err := f.blocklist.CheckNotBlocked(context.Background(), testPairID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpstreamUnavailable))
}

func TestBlocklistService_LedgerAndEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ledger := new(mockLedger)
	publisher := new(mockPublisher)
	f.blocklist.ledger = ledger
	f.blocklist.publisher = publisher

	ledger.On("Record", mock.Anything, testPairID, model.LedgerEventUnlinked, "").Return(nil).Once()
	publisher.On("PublishJSON", mock.Anything, testPairID, sse.EventUnlinked,
		map[string]string{"pairId": testPairID}).Return(errors.New("pubsub down")).Once()

	require.NoError(t, f.blocklist.Unlink(ctx, testPairID))

	ledger.AssertExpectations(t)
	publisher.AssertExpectations(t)
}
