package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/sse"
)

const activityLimit = 50

// Action is a domain mutation that moves the pair's shared state forward.
type Action string

const (
	ActionMissionsCreated    Action = "missions.created"
	ActionMissionDone        Action = "mission.done"
	ActionReactionRecorded   Action = "reaction.recorded"
	ActionScoresNudged       Action = "scores.nudged"
	ActionChallengeStarted   Action = "challenge.started"
	ActionChallengeCompleted Action = "challenge.completed"
	ActionChallengeApproved  Action = "challenge.approved"
	ActionScoresCreated      Action = "scores.created"
	ActionGardenTransition   Action = "garden.transition"
)

var counterPolicy = map[Action][]model.Counter{
	ActionMissionsCreated:    {model.CounterMissions, model.CounterGlobal},
	ActionMissionDone:        {model.CounterMissions, model.CounterEcology, model.CounterGlobal},
	ActionReactionRecorded:   {model.CounterReactions, model.CounterGlobal, model.CounterEcology},
	ActionScoresNudged:       {model.CounterScores},
	ActionChallengeStarted:   {model.CounterChallenges, model.CounterEcology},
	ActionChallengeCompleted: {model.CounterChallenges, model.CounterGlobal},
	ActionChallengeApproved:  {model.CounterChallenges, model.CounterMissions, model.CounterScores, model.CounterEcology, model.CounterGlobal},
	ActionScoresCreated:      {model.CounterScores, model.CounterGlobal},
	ActionGardenTransition:   {model.CounterGardenMood},
}

// CountersFor returns the counters an action bumps, in bump order.
func CountersFor(action Action) []model.Counter {
	return counterPolicy[action]
}

// EventPublisher pushes pair events to connected devices.
type EventPublisher interface {
	PublishJSON(ctx context.Context, pairID, eventType string, payload any) error
}

type StateService struct {
	redis     *redisclient.Client
	publisher EventPublisher
	ttl       time.Duration
	now       func() time.Time
}

func NewStateService(redis *redisclient.Client, publisher EventPublisher, ttl time.Duration) *StateService {
	return &StateService{
		redis:     redis,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Bump increments every counter the actions map to, each exactly once, using
// one HINCRBY per counter. The increments are individually atomic but not a
// transaction as a whole.
func (s *StateService) Bump(ctx context.Context, pairID string, actions ...Action) (map[model.Counter]int64, error) {
	key := redisclient.StateKey(pairID)
	seen := make(map[model.Counter]bool)
	result := make(map[model.Counter]int64)

	for _, action := range actions {
		counters, ok := counterPolicy[action]
		if !ok {
			return nil, fmt.Errorf("bump: unknown action %q", action)
		}
		for _, c := range counters {
			if seen[c] {
				continue
			}
			seen[c] = true
			v, err := s.redis.HIncrBy(ctx, key, string(c), 1).Result()
			if err != nil {
				return result, fmt.Errorf("bump %s: %w", c, err)
			}
			result[c] = v
		}
	}

	now := s.now().UTC()
	if err := s.redis.HSet(ctx, key,
		"lastUpdated", now.Format(time.RFC3339),
		"currentDate", redisclient.DayKey(now),
	).Err(); err != nil {
		return result, fmt.Errorf("bump metadata: %w", err)
	}
	if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return result, fmt.Errorf("bump ttl: %w", err)
	}

	for _, action := range actions {
		s.recordActivity(ctx, pairID, action, now)
	}
	s.announce(ctx, pairID, result)

	return result, nil
}

// Get returns the pair's shared state; absent counters read as zero.
func (s *StateService) Get(ctx context.Context, pairID string) (model.SharedState, error) {
	fields, err := s.redis.HGetAll(ctx, redisclient.StateKey(pairID)).Result()
	if err != nil {
		return model.SharedState{}, fmt.Errorf("get state: %w", err)
	}

	state := model.SharedState{
		Versions:    make(map[model.Counter]int64, len(model.AllCounters)),
		CurrentDate: fields["currentDate"],
		LastUpdated: fields["lastUpdated"],
	}
	for _, c := range model.AllCounters {
		if raw, ok := fields[string(c)]; ok {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return model.SharedState{}, fmt.Errorf("parse %s: %w", c, err)
			}
			state.Versions[c] = v
		} else {
			state.Versions[c] = 0
		}
	}
	return state, nil
}

// Version reads a single counter.
func (s *StateService) Version(ctx context.Context, pairID string, c model.Counter) (int64, error) {
	v, err := s.redis.HGet(ctx, redisclient.StateKey(pairID), string(c)).Int64()
	if redisclient.IsNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", c, err)
	}
	return v, nil
}

// Activity returns the most recent actions for a pair, newest first.
func (s *StateService) Activity(ctx context.Context, pairID string, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 || limit > activityLimit {
		limit = activityLimit
	}
	raw, err := s.redis.LRange(ctx, redisclient.ActivityKey(pairID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	entries := make([]model.ActivityEntry, 0, len(raw))
	for _, item := range raw {
		var entry model.ActivityEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *StateService) recordActivity(ctx context.Context, pairID string, action Action, at time.Time) {
	NonCritical(ctx, "activity append", func(ctx context.Context) error {
		data, err := json.Marshal(model.ActivityEntry{Action: string(action), At: at.Format(time.RFC3339)})
		if err != nil {
			return err
		}
		key := redisclient.ActivityKey(pairID)
		if err := s.redis.LPush(ctx, key, data).Err(); err != nil {
			return err
		}
		if err := s.redis.LTrim(ctx, key, 0, activityLimit-1).Err(); err != nil {
			return err
		}
		return s.redis.Expire(ctx, key, s.ttl).Err()
	})
}

func (s *StateService) announce(ctx context.Context, pairID string, bumped map[model.Counter]int64) {
	if s.publisher == nil || len(bumped) == 0 {
		return
	}
	NonCritical(ctx, "version event", func(ctx context.Context) error {
		return s.publisher.PublishJSON(ctx, pairID, sse.EventVersion, bumped)
	})
}
