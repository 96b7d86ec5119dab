package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pairsync/sync-server/internal/config"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/repository"
	"github.com/pairsync/sync-server/internal/sse"
	"github.com/pairsync/sync-server/internal/util"
)

const pairingCodeLength = 12

type PairingService struct {
	redis       *redisclient.Client
	rateLimiter *RateLimiter
	ledger      repository.LedgerRepository
	publisher   EventPublisher
	codeTTL     time.Duration
	resultTTL   time.Duration
	newCode     func() (string, error)
}

func NewPairingService(
	redis *redisclient.Client,
	rateLimiter *RateLimiter,
	ledger repository.LedgerRepository,
	publisher EventPublisher,
	ttls config.TTLs,
) *PairingService {
	if ledger == nil {
		ledger = repository.NopLedger{}
	}
	return &PairingService{
		redis:       redis,
		rateLimiter: rateLimiter,
		ledger:      ledger,
		publisher:   publisher,
		codeTTL:     ttls.PairingCode,
		resultTTL:   ttls.PairingResult,
		newCode:     generatePairingCode,
	}
}

// CreatePairing mints a pair id and a one-time code pointing at it. A code
// collision is reported as a retryable error rather than retried here.
func (s *PairingService) CreatePairing(ctx context.Context) (*model.PairingCode, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate pairing code").WithCause(err)
	}
	pairID := uuid.NewString()

	ok, err := s.redis.SetNX(ctx, redisclient.PairCodeKey(code), pairID, s.codeTTL).Result()
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", fmt.Errorf("store pairing code: %w", err))
	}
	if !ok {
		log.Warn().Str("code", util.MaskCode(code)).Msg("pairing code collision")
		return nil, apperrors.CodeCollision()
	}

	log.Info().
		Str("code", util.MaskCode(code)).
		Dur("ttl", s.codeTTL).
		Msg("pairing code created")

	NonCritical(ctx, "ledger issued", func(ctx context.Context) error {
		return s.ledger.Record(ctx, pairID, model.LedgerEventIssued, "code="+util.MaskCode(code))
	})

	return &model.PairingCode{
		Code:         code,
		ExpiresInSec: int(s.codeTTL.Seconds()),
	}, nil
}

// ConsumeCode exchanges a code for its pair id exactly once. Unknown,
// consumed and expired codes are indistinguishable to the caller.
func (s *PairingService) ConsumeCode(ctx context.Context, rawCode string) (string, error) {
	code := util.NormalizePairingCode(rawCode)
	if !util.IsValidPairingCode(code) {
		return "", apperrors.InvalidPairingCode()
	}

	if err := s.rateLimiter.Enforce(ctx, "connect_code:"+util.HashToken(code),
		config.PairingCodeLimit, config.PairingCodeWindow); err != nil {
		return "", err
	}

	pairID, err := s.redis.GetDel(ctx, redisclient.PairCodeKey(code)).Result()
	if redisclient.IsNil(err) {
		log.Warn().Str("code", util.MaskCode(code)).Msg("invalid or expired pairing code")
		return "", apperrors.InvalidPairingCode()
	}
	if err != nil {
		return "", apperrors.UpstreamUnavailable("store", fmt.Errorf("consume pairing code: %w", err))
	}

	NonCritical(ctx, "pairing result", func(ctx context.Context) error {
		return s.redis.Set(ctx, redisclient.PairIDByCodeKey(code), pairID, s.resultTTL).Err()
	})
	NonCritical(ctx, "ledger paired", func(ctx context.Context) error {
		return s.ledger.Record(ctx, pairID, model.LedgerEventPaired, "code="+util.MaskCode(code))
	})
	if s.publisher != nil {
		NonCritical(ctx, "paired event", func(ctx context.Context) error {
			return s.publisher.PublishJSON(ctx, pairID, sse.EventPaired, map[string]string{"pairId": pairID})
		})
	}

	log.Info().
		Str("code", util.MaskCode(code)).
		Str("pairId", pairID).
		Msg("pairing successful")

	return pairID, nil
}

// Status lets the issuing device poll for the outcome of its code.
func (s *PairingService) Status(ctx context.Context, rawCode string) (model.PairingLookup, error) {
	code := util.NormalizePairingCode(rawCode)
	if !util.IsValidPairingCode(code) {
		return model.PairingLookup{}, apperrors.InvalidPairingCode()
	}

	pairID, err := s.redis.Get(ctx, redisclient.PairIDByCodeKey(code)).Result()
	if err == nil {
		return model.PairingLookup{Status: model.PairingStatusMatched, PairID: pairID}, nil
	}
	if !redisclient.IsNil(err) {
		return model.PairingLookup{}, apperrors.UpstreamUnavailable("store", fmt.Errorf("pairing result: %w", err))
	}

	pending, err := s.redis.Exists(ctx, redisclient.PairCodeKey(code)).Result()
	if err != nil {
		return model.PairingLookup{}, apperrors.UpstreamUnavailable("store", fmt.Errorf("pairing code: %w", err))
	}
	if pending > 0 {
		return model.PairingLookup{Status: model.PairingStatusPending}, nil
	}
	return model.PairingLookup{Status: model.PairingStatusGone}, nil
}

func generatePairingCode() (string, error) {
	return util.RandomString(util.PairingAlphabet, pairingCodeLength)
}
