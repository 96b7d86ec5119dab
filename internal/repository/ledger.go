package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pairsync/sync-server/internal/model"
)

type LedgerRepository interface {
	Record(ctx context.Context, pairID string, event model.LedgerEvent, detail string) error
	FindByPairID(ctx context.Context, pairID string, limit int) ([]model.LedgerEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ledgerRepo struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Record(ctx context.Context, pairID string, event model.LedgerEvent, detail string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pair_ledger (pair_id, event, detail)
		VALUES ($1, $2, $3)
	`, pairID, event, detail)
	return err
}

func (r *ledgerRepo) FindByPairID(ctx context.Context, pairID string, limit int) ([]model.LedgerEntry, error) {
	limit = normalizeLimit(limit)
	var entries []model.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, pair_id, event, detail, created_at FROM pair_ledger
		WHERE pair_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, pairID, limit)
	return entries, err
}

func (r *ledgerRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pair_ledger
		WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// NopLedger is used when no database is configured.
type NopLedger struct{}

func (NopLedger) Record(context.Context, string, model.LedgerEvent, string) error { return nil }

func (NopLedger) FindByPairID(context.Context, string, int) ([]model.LedgerEntry, error) {
	return nil, nil
}

func (NopLedger) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
