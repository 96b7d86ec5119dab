package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pairsync/sync-server/internal/config"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
)

// KudosNudge is how far a recorded reaction moves peacePassion.
const KudosNudge = 2

// bootstrapScoresScript writes the week's scores only if the hash is absent.
// ARGV[1] is the TTL in seconds, the rest are field/value pairs.
var bootstrapScoresScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
    return 0
end
for i = 2, #ARGV, 2 do
    redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
return 1
`)

// nudgeScoresScript adds ARGV[1] to peacePassion, clamped to [0,100].
// Returns -1 when the week has no scores yet.
var nudgeScoresScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
local current = tonumber(redis.call('HGET', KEYS[1], 'peacePassion') or '0') or 0
local v = current + tonumber(ARGV[1])
if v > 100 then v = 100 end
if v < 0 then v = 0 end
redis.call('HSET', KEYS[1], 'peacePassion', v)
return v
`)

type ScoresData struct {
	model.WeeklyScores
	SyncEnergyScore int `json:"syncEnergyScore"`
	EnergyDelta     int `json:"energyDelta"`
}

type ScoresView struct {
	ScoresVersion int64      `json:"scoresVersion"`
	Data          ScoresData `json:"data"`
}

type ScoreService struct {
	redis  *redisclient.Client
	state  *StateService
	energy *EnergyService
	ttl    time.Duration
	now    func() time.Time
}

func NewScoreService(redis *redisclient.Client, state *StateService, energy *EnergyService, ttl time.Duration) *ScoreService {
	return &ScoreService{
		redis:  redis,
		state:  state,
		energy: energy,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SeedWeeklyScores derives a week's starting scores from its ISO week key.
func SeedWeeklyScores(week string, monday time.Time) model.WeeklyScores {
	h := fnv.New64a()
	h.Write([]byte(week))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	base := func() int { return 50 + rng.IntN(31) }
	scores := model.WeeklyScores{
		Week:         week,
		PeacePassion: base(),
		Sync:         base(),
		Empathy:      base(),
	}

	drift := func(v int) int { return clamp(v+rng.IntN(21)-10, 0, 100) }
	for i := 0; i < config.EnergyWindowDays; i++ {
		scores.Trend.Days = append(scores.Trend.Days, redisclient.DayKey(monday.AddDate(0, 0, i)))
		scores.Trend.PeacePassion = append(scores.Trend.PeacePassion, drift(scores.PeacePassion))
		scores.Trend.Sync = append(scores.Trend.Sync, drift(scores.Sync))
		scores.Trend.Empathy = append(scores.Trend.Empathy, drift(scores.Empathy))
	}
	return scores
}

// Get bootstraps the week's scores if needed and reports them with the
// current energy and its week-over-week change.
func (s *ScoreService) Get(ctx context.Context, pairID string) (*ScoresView, error) {
	now := s.now()

	if err := s.bootstrap(ctx, pairID, now); err != nil {
		return nil, err
	}

	scores, err := s.load(ctx, pairID, redisclient.WeekKey(now))
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	current, err := s.energy.Compute(ctx, pairID, now)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	lastWeek, err := s.energy.Compute(ctx, pairID, now.AddDate(0, 0, -config.EnergyWindowDays))
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	version, err := s.state.Version(ctx, pairID, model.CounterScores)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	return &ScoresView{
		ScoresVersion: version,
		Data: ScoresData{
			WeeklyScores:    scores,
			SyncEnergyScore: current.Score,
			EnergyDelta:     Delta(lastWeek, current),
		},
	}, nil
}

// Nudge moves this week's peacePassion by delta. It reports false when the
// week has not been bootstrapped, in which case nothing changes.
func (s *ScoreService) Nudge(ctx context.Context, pairID string, delta int) (bool, error) {
	key := redisclient.ScoresKey(pairID, redisclient.WeekKey(s.now()))
	v, err := nudgeScoresScript.Run(ctx, s.redis, []string{key}, delta).Int64()
	if err != nil {
		return false, fmt.Errorf("nudge scores: %w", err)
	}
	return v >= 0, nil
}

func (s *ScoreService) bootstrap(ctx context.Context, pairID string, now time.Time) error {
	week := redisclient.WeekKey(now)
	seeded := SeedWeeklyScores(week, weekStart(now))

	trend, err := json.Marshal(seeded.Trend)
	if err != nil {
		return apperrors.Internal("Failed to encode scores").WithCause(err)
	}

	created, err := bootstrapScoresScript.Run(ctx, s.redis,
		[]string{redisclient.ScoresKey(pairID, week)},
		int64(s.ttl.Seconds()),
		"week", week,
		"peacePassion", seeded.PeacePassion,
		"sync", seeded.Sync,
		"empathy", seeded.Empathy,
		"trend", string(trend),
	).Int64()
	if err != nil {
		return apperrors.UpstreamUnavailable("store", fmt.Errorf("bootstrap scores: %w", err))
	}

	if created == 1 {
		if _, err := s.state.Bump(ctx, pairID, ActionScoresCreated); err != nil {
			return apperrors.UpstreamUnavailable("store", err)
		}
	}
	return nil
}

func (s *ScoreService) load(ctx context.Context, pairID, week string) (model.WeeklyScores, error) {
	fields, err := s.redis.HGetAll(ctx, redisclient.ScoresKey(pairID, week)).Result()
	if err != nil {
		return model.WeeklyScores{}, fmt.Errorf("load scores: %w", err)
	}

	scores := model.WeeklyScores{Week: week}
	for name, dst := range map[string]*int{
		"peacePassion": &scores.PeacePassion,
		"sync":         &scores.Sync,
		"empathy":      &scores.Empathy,
	} {
		if raw, ok := fields[name]; ok {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return model.WeeklyScores{}, fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = v
		}
	}
	if raw, ok := fields["trend"]; ok {
		if err := json.Unmarshal([]byte(raw), &scores.Trend); err != nil {
			return model.WeeklyScores{}, fmt.Errorf("parse trend: %w", err)
		}
	}
	return scores, nil
}

// weekStart is the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
