package service

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/pairsync/sync-server/internal/redis"
)

// Claim is the outcome of trying to set an idempotency marker.
type Claim struct {
	key       string
	Duplicate bool
	// Stored is the value recorded by the first execution, set only on duplicates.
	Stored string
}

type IdempotencyGuard struct {
	redis *redisclient.Client
	ttl   time.Duration
}

func NewIdempotencyGuard(redis *redisclient.Client, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{redis: redis, ttl: ttl}
}

// Claim sets idem:<pairId>:<domain>:<parts...>:<updateId> if absent. An empty
// updateID always proceeds.
func (g *IdempotencyGuard) Claim(ctx context.Context, pairID, domain, updateID string, parts ...string) (Claim, error) {
	return g.ClaimWithValue(ctx, "1", pairID, domain, updateID, parts...)
}

// ClaimWithValue is Claim but records value so a duplicate can recover what
// the first execution produced.
func (g *IdempotencyGuard) ClaimWithValue(ctx context.Context, value, pairID, domain, updateID string, parts ...string) (Claim, error) {
	if updateID == "" {
		return Claim{}, nil
	}

	key := redisclient.IdempotencyKey(pairID, domain, updateID, parts...)
	ok, err := g.redis.SetNX(ctx, key, value, g.ttl).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return Claim{key: key}, nil
	}

	stored, err := g.redis.Get(ctx, key).Result()
	if err != nil && !redisclient.IsNil(err) {
		return Claim{}, fmt.Errorf("read claim %s: %w", key, err)
	}
	return Claim{key: key, Duplicate: true, Stored: stored}, nil
}

// Release drops a marker whose guarded mutation did not happen, so the
// client's retry can execute.
func (g *IdempotencyGuard) Release(ctx context.Context, c Claim) {
	if c.key == "" || c.Duplicate {
		return
	}
	NonCritical(ctx, "idempotency release", func(ctx context.Context) error {
		return g.redis.Del(ctx, c.key).Err()
	})
}
