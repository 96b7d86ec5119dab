package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairsync/sync-server/internal/catalog"
	"github.com/pairsync/sync-server/internal/config"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
)

const (
	maxMissionsPerDay = 3
	bridgePrefix      = "bridge-"
	bridgePoints      = 15
)

type MissionsView struct {
	Missions        model.MissionList `json:"missions"`
	MissionsVersion int64             `json:"missionsVersion"`
}

type Streak struct {
	MissionDays int `json:"missionDays"`
}

type MissionCompletion struct {
	XPDelta    int    `json:"xpDelta"`
	Streak     Streak `json:"streak"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

type MissionService struct {
	redis   *redisclient.Client
	state   *StateService
	guard   *IdempotencyGuard
	catalog *catalog.Catalog
	ttl     time.Duration
	now     func() time.Time
}

func NewMissionService(
	redis *redisclient.Client,
	state *StateService,
	guard *IdempotencyGuard,
	cat *catalog.Catalog,
	ttl time.Duration,
) *MissionService {
	return &MissionService{
		redis:   redis,
		state:   state,
		guard:   guard,
		catalog: cat,
		ttl:     ttl,
		now:     time.Now,
	}
}

// GenerateMissions picks the day's missions. The same pair and day always
// yield the same list.
func GenerateMissions(cat *catalog.Catalog, pairID string, day time.Time) model.MissionList {
	dayKey := redisclient.DayKey(day)
	h := fnv.New64a()
	h.Write([]byte(pairID + ":" + dayKey))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	count := 1 + rng.IntN(min(maxMissionsPerDay, len(cat.Missions)))
	picks := rng.Perm(len(cat.Missions))[:count]

	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := redisclient.EndOfDay(day)

	list := make(model.MissionList, 0, count)
	for _, idx := range picks {
		tpl := cat.Missions[idx]
		list = append(list, model.Mission{
			ID:         tpl.ID,
			Title:      tpl.Title,
			Difficulty: tpl.Difficulty,
			Points:     tpl.Points,
			Phase:      tpl.Phase,
			Status:     model.MissionStatusPending,
			CreatedAt:  start,
			ExpiresAt:  end,
		})
	}
	return list
}

// Today returns the pair's list for the current day, creating it on first access.
func (s *MissionService) Today(ctx context.Context, pairID string) (*MissionsView, error) {
	list, err := s.ensureList(ctx, pairID, s.now())
	if err != nil {
		return nil, err
	}
	version, err := s.state.Version(ctx, pairID, model.CounterMissions)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	return &MissionsView{Missions: list, MissionsVersion: version}, nil
}

// Complete marks one of today's missions done.
func (s *MissionService) Complete(ctx context.Context, pairID, missionID, updateID string) (*MissionCompletion, error) {
	if missionID == "" {
		return nil, apperrors.MissingRequired("missionId")
	}

	now := s.now()
	day := redisclient.DayKey(now)

	claim, err := s.guard.Claim(ctx, pairID, "missions", updateID, day, missionID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if claim.Duplicate {
		streak, err := s.streak(ctx, pairID, now)
		if err != nil {
			return nil, err
		}
		return &MissionCompletion{Streak: streak, Idempotent: true}, nil
	}

	xp, err := s.markDone(ctx, pairID, day, missionID, now)
	if err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	if xp > 0 {
		if _, err := s.state.Bump(ctx, pairID, ActionMissionDone); err != nil {
			return nil, apperrors.UpstreamUnavailable("store", err)
		}
		log.Info().Str("pairId", pairID).Str("missionId", missionID).Int("xp", xp).Msg("mission completed")
	}

	streak, err := s.streak(ctx, pairID, now)
	if err != nil {
		return nil, err
	}
	return &MissionCompletion{XPDelta: xp, Streak: streak}, nil
}

// InsertBridge records an approved challenge as a done mission on today's
// list. It reports false when the bridge was already present. When the day
// has no list yet the bridge is stored alone; Today fills in the generated
// missions later, so the approval itself is the only missions bump.
func (s *MissionService) InsertBridge(ctx context.Context, pairID string, challenge *model.Challenge) (bool, error) {
	now := s.now().UTC()
	key := redisclient.MissionsKey(pairID, redisclient.DayKey(now))
	id := bridgePrefix + challenge.ID

	bridge := model.Mission{
		ID:          id,
		Title:       challenge.Text,
		Difficulty:  "bridge",
		Points:      bridgePoints,
		Phase:       "any",
		Status:      model.MissionStatusDone,
		CreatedAt:   now,
		CompletedAt: &now,
		ExpiresAt:   redisclient.EndOfDay(now),
	}

	var list model.MissionList
	found, err := s.redis.GetJSON(ctx, key, &list)
	if err != nil {
		return false, apperrors.UpstreamUnavailable("store", err)
	}
	if !found {
		created, err := s.redis.SetJSONNX(ctx, key, model.MissionList{bridge}, s.ttl)
		if err != nil {
			return false, apperrors.UpstreamUnavailable("store", err)
		}
		if created {
			return true, nil
		}
		if _, err := s.redis.GetJSON(ctx, key, &list); err != nil {
			return false, apperrors.UpstreamUnavailable("store", err)
		}
	}

	if list.Find(id) >= 0 {
		return false, nil
	}
	if err := s.redis.ReplaceJSON(ctx, key, append(list, bridge)); err != nil {
		return false, apperrors.UpstreamUnavailable("store", err)
	}
	return true, nil
}

func (s *MissionService) markDone(ctx context.Context, pairID, day, missionID string, now time.Time) (int, error) {
	key := redisclient.MissionsKey(pairID, day)

	var list model.MissionList
	found, err := s.redis.GetJSON(ctx, key, &list)
	if err != nil {
		return 0, apperrors.UpstreamUnavailable("store", err)
	}
	if !found {
		return 0, apperrors.Expired("missions")
	}

	idx := list.Find(missionID)
	if idx < 0 {
		return 0, apperrors.NotFound("mission")
	}
	if list[idx].Done() {
		return 0, nil
	}

	completed := now.UTC()
	list[idx].Status = model.MissionStatusDone
	list[idx].CompletedAt = &completed

	if err := s.redis.ReplaceJSON(ctx, key, list); err != nil {
		return 0, apperrors.UpstreamUnavailable("store", err)
	}
	return list[idx].Points, nil
}

// ensureList reads the day's list or creates it. Only the writer that wins
// the create, or tops up a bridge-only list, bumps the missions counters.
func (s *MissionService) ensureList(ctx context.Context, pairID string, now time.Time) (model.MissionList, error) {
	key := redisclient.MissionsKey(pairID, redisclient.DayKey(now))

	var list model.MissionList
	found, err := s.redis.GetJSON(ctx, key, &list)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if found && !bridgesOnly(list) {
		return list, nil
	}
	if found {
		return s.topUp(ctx, pairID, key, list, now)
	}

	list = GenerateMissions(s.catalog, pairID, now)
	created, err := s.redis.SetJSONNX(ctx, key, list, s.ttl)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if !created {
		if _, err := s.redis.GetJSON(ctx, key, &list); err != nil {
			return nil, apperrors.UpstreamUnavailable("store", err)
		}
		return list, nil
	}

	if _, err := s.state.Bump(ctx, pairID, ActionMissionsCreated); err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	return list, nil
}

// topUp prepends the generated missions to a list that so far holds only
// bridges. This is the list's real creation, so it bumps MissionsCreated.
func (s *MissionService) topUp(ctx context.Context, pairID, key string, bridges model.MissionList, now time.Time) (model.MissionList, error) {
	list := append(GenerateMissions(s.catalog, pairID, now), bridges...)
	if err := s.redis.ReplaceJSON(ctx, key, list); err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if _, err := s.state.Bump(ctx, pairID, ActionMissionsCreated); err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	return list, nil
}

func bridgesOnly(list model.MissionList) bool {
	for _, m := range list {
		if !strings.HasPrefix(m.ID, bridgePrefix) {
			return false
		}
	}
	return true
}

// streak counts consecutive days, ending today, with at least one done mission.
func (s *MissionService) streak(ctx context.Context, pairID string, now time.Time) (Streak, error) {
	now = now.UTC()
	days := 0
	for i := 0; i < config.EnergyWindowDays; i++ {
		var list model.MissionList
		found, err := s.redis.GetJSON(ctx, redisclient.MissionsKey(pairID, redisclient.DayKey(now.AddDate(0, 0, -i))), &list)
		if err != nil {
			return Streak{}, apperrors.UpstreamUnavailable("store", fmt.Errorf("streak: %w", err))
		}
		if !found || list.DoneCount() == 0 {
			break
		}
		days++
	}
	return Streak{MissionDays: days}, nil
}
