package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairsync/sync-server/internal/database"
	"github.com/pairsync/sync-server/internal/model"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, normalizeLimit(0))
	assert.Equal(t, defaultLimit, normalizeLimit(-3))
	assert.Equal(t, 10, normalizeLimit(10))
	assert.Equal(t, maxLimit, normalizeLimit(10_000))
}

func TestNopLedger(t *testing.T) {
	var ledger LedgerRepository = NopLedger{}
	ctx := context.Background()

	assert.NoError(t, ledger.Record(ctx, "p1", model.LedgerEventPaired, ""))
	entries, err := ledger.FindByPairID(ctx, "p1", 10)
	assert.NoError(t, err)
	assert.Empty(t, entries)
	n, err := ledger.DeleteOlderThan(ctx, time.Now())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedgerRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLedgerRepository(db.DB)
	ctx := context.Background()
	pairID := "8a0c7a58-9a40-4a52-9ef5-0d6f3f0d3c11"

	_, err := db.ExecContext(ctx, `DELETE FROM pair_ledger WHERE pair_id = $1`, pairID)
	require.NoError(t, err)

	require.NoError(t, repo.Record(ctx, pairID, model.LedgerEventPaired, "code=ABCD-****"))
	require.NoError(t, repo.Record(ctx, pairID, model.LedgerEventUnlinked, ""))

	t.Run("finds entries newest first", func(t *testing.T) {
		entries, err := repo.FindByPairID(ctx, pairID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, model.LedgerEventUnlinked, entries[0].Event)
		assert.Equal(t, model.LedgerEventPaired, entries[1].Event)
	})

	t.Run("prunes old entries", func(t *testing.T) {
		n, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(2))

		entries, err := repo.FindByPairID(ctx, pairID, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}
