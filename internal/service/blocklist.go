package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/repository"
	"github.com/pairsync/sync-server/internal/sse"
	"github.com/pairsync/sync-server/internal/util"
)

type BlocklistService struct {
	redis     *redisclient.Client
	ledger    repository.LedgerRepository
	publisher EventPublisher
	ttl       time.Duration
}

func NewBlocklistService(
	redis *redisclient.Client,
	ledger repository.LedgerRepository,
	publisher EventPublisher,
	ttl time.Duration,
) *BlocklistService {
	if ledger == nil {
		ledger = repository.NopLedger{}
	}
	return &BlocklistService{
		redis:     redis,
		ledger:    ledger,
		publisher: publisher,
		ttl:       ttl,
	}
}

// Unlink blocks a pair for the cooldown window. Repeat calls refresh the TTL.
func (s *BlocklistService) Unlink(ctx context.Context, pairID string) error {
	if !util.IsValidUUID(pairID) {
		return apperrors.InvalidInput("pairId", "must be a pair identifier")
	}

	if err := s.redis.Set(ctx, redisclient.BlocklistKey(pairID), "1", s.ttl).Err(); err != nil {
		return apperrors.UpstreamUnavailable("store", fmt.Errorf("set blocklist: %w", err))
	}

	log.Info().Str("pairId", pairID).Dur("ttl", s.ttl).Msg("pair unlinked")

	NonCritical(ctx, "ledger unlinked", func(ctx context.Context) error {
		return s.ledger.Record(ctx, pairID, model.LedgerEventUnlinked, "")
	})
	if s.publisher != nil {
		NonCritical(ctx, "unlinked event", func(ctx context.Context) error {
			return s.publisher.PublishJSON(ctx, pairID, sse.EventUnlinked, map[string]string{"pairId": pairID})
		})
	}
	return nil
}

func (s *BlocklistService) IsBlocked(ctx context.Context, pairID string) (bool, error) {
	n, err := s.redis.Exists(ctx, redisclient.BlocklistKey(pairID)).Result()
	if err != nil {
		return false, fmt.Errorf("check blocklist: %w", err)
	}
	return n > 0, nil
}

// CheckNotBlocked fails closed: a store error is reported, never treated as
// "not blocked".
func (s *BlocklistService) CheckNotBlocked(ctx context.Context, pairID string) error {
	blocked, err := s.IsBlocked(ctx, pairID)
	if err != nil {
		return apperrors.UpstreamUnavailable("store", err)
	}
	if blocked {
		return apperrors.Blocked()
	}
	return nil
}

// Remaining reports how long a pair stays blocked; zero when not blocked.
func (s *BlocklistService) Remaining(ctx context.Context, pairID string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, redisclient.BlocklistKey(pairID)).Result()
	if err != nil {
		return 0, fmt.Errorf("blocklist ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
