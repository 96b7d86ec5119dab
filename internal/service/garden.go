package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
)

type GardenService struct {
	redis  *redisclient.Client
	state  *StateService
	energy *EnergyService
	ttl    time.Duration
	now    func() time.Time
}

func NewGardenService(redis *redisclient.Client, state *StateService, energy *EnergyService, ttl time.Duration) *GardenService {
	return &GardenService{
		redis:  redis,
		state:  state,
		energy: energy,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Status recomputes the garden from the energy window. A mood or weather
// change against the stored snapshot bumps gardenMoodVersion.
func (s *GardenService) Status(ctx context.Context, pairID string) (*model.EcologySnapshot, error) {
	now := s.now()

	energy, err := s.energy.Compute(ctx, pairID, now)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	key := redisclient.EcologyKey(pairID)
	prev, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	snapshot := &model.EcologySnapshot{
		GardenMood:   energy.Mood,
		WeatherState: energy.Weather,
		SyncEnergy:   energy.Score,
		GlowUntil:    parseGlow(prev["glowUntil"], now),
	}

	if transitioned(prev, snapshot) {
		NonCritical(ctx, "garden transition", func(ctx context.Context) error {
			_, err := s.state.Bump(ctx, pairID, ActionGardenTransition)
			return err
		})
		log.Info().
			Str("pairId", pairID).
			Str("mood", string(snapshot.GardenMood)).
			Str("weather", string(snapshot.WeatherState)).
			Msg("garden transition")
	}

	NonCritical(ctx, "ecology snapshot", func(ctx context.Context) error {
		if err := s.redis.HSet(ctx, key,
			"gardenMood", string(snapshot.GardenMood),
			"weatherState", string(snapshot.WeatherState),
			"syncEnergy", strconv.Itoa(snapshot.SyncEnergy),
		).Err(); err != nil {
			return err
		}
		return s.redis.Expire(ctx, key, s.ttl).Err()
	})

	return snapshot, nil
}

// transitioned is false for a first observation: there is nothing to move from.
func transitioned(prev map[string]string, next *model.EcologySnapshot) bool {
	mood, ok := prev["gardenMood"]
	if !ok {
		return false
	}
	return mood != string(next.GardenMood) || prev["weatherState"] != string(next.WeatherState)
}
