package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/util"
)

const maxChallengeText = 200

type StartChallengeInput struct {
	PairID      string
	Text        string
	ChallengeID string
	UpdateID    string
}

type ChallengeStart struct {
	Challenge  *model.Challenge `json:"challenge"`
	Idempotent bool             `json:"idempotent,omitempty"`
}

type ChallengeCompletion struct {
	AwaitingApproval bool  `json:"awaitingApproval"`
	Version          int64 `json:"version"`
	Idempotent       bool  `json:"idempotent,omitempty"`
}

type ChallengeApproval struct {
	SyncEnergyDelta int   `json:"syncEnergyDelta"`
	Version         int64 `json:"version"`
	Idempotent      bool  `json:"idempotent,omitempty"`
}

type ChallengeService struct {
	redis    *redisclient.Client
	state    *StateService
	guard    *IdempotencyGuard
	missions *MissionService
	energy   *EnergyService
	ttl      time.Duration
	now      func() time.Time
}

func NewChallengeService(
	redis *redisclient.Client,
	state *StateService,
	guard *IdempotencyGuard,
	missions *MissionService,
	energy *EnergyService,
	ttl time.Duration,
) *ChallengeService {
	return &ChallengeService{
		redis:    redis,
		state:    state,
		guard:    guard,
		missions: missions,
		energy:   energy,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Start creates a pending challenge. Starting an id that already exists
// returns the stored challenge unchanged.
func (s *ChallengeService) Start(ctx context.Context, in StartChallengeInput) (*ChallengeStart, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperrors.MissingRequired("text")
	}
	if utf8.RuneCountInString(text) > maxChallengeText {
		return nil, apperrors.InvalidInput("text", "must be at most 200 characters")
	}

	id := in.ChallengeID
	if id == "" {
		id = uuid.NewString()
	} else if !util.IsValidIdentifier(id) {
		return nil, apperrors.InvalidInput("challengeId", "must be 1-64 letters, digits, '-' or '_'")
	}

	claim, err := s.guard.ClaimWithValue(ctx, id, in.PairID, "challenge-start", in.UpdateID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if claim.Duplicate {
		challenge, err := s.load(ctx, in.PairID, claim.Stored)
		if err != nil {
			return nil, err
		}
		return &ChallengeStart{Challenge: challenge, Idempotent: true}, nil
	}

	now := s.now().UTC()
	challenge := &model.Challenge{
		ID:        id,
		Text:      text,
		Status:    model.ChallengeStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	created, err := s.redis.SetJSONNX(ctx, redisclient.ChallengeKey(in.PairID, id), challenge, s.ttl)
	if err != nil {
		s.guard.Release(ctx, claim)
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if !created {
		existing, err := s.load(ctx, in.PairID, id)
		if err != nil {
			return nil, err
		}
		return &ChallengeStart{Challenge: existing}, nil
	}

	setKey := redisclient.ChallengeSetKey(in.PairID)
	if err := s.redis.SAdd(ctx, setKey, id).Err(); err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	NonCritical(ctx, "challenge index ttl", func(ctx context.Context) error {
		return s.redis.Expire(ctx, setKey, s.ttl).Err()
	})

	if _, err := s.state.Bump(ctx, in.PairID, ActionChallengeStarted); err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	log.Info().Str("pairId", in.PairID).Str("challengeId", id).Msg("challenge started")
	return &ChallengeStart{Challenge: challenge}, nil
}

// Complete moves a pending challenge to completed. Completed and approved
// challenges are left as they are.
func (s *ChallengeService) Complete(ctx context.Context, pairID, challengeID, updateID string) (*ChallengeCompletion, error) {
	if challengeID == "" {
		return nil, apperrors.MissingRequired("challengeId")
	}

	claim, err := s.guard.Claim(ctx, pairID, "challenge-complete", updateID, challengeID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	challenge, err := s.load(ctx, pairID, challengeID)
	if err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	if claim.Duplicate || challenge.Status != model.ChallengeStatusPending {
		version, err := s.state.Version(ctx, pairID, model.CounterGlobal)
		if err != nil {
			return nil, apperrors.UpstreamUnavailable("store", err)
		}
		return &ChallengeCompletion{
			AwaitingApproval: challenge.Status == model.ChallengeStatusCompleted,
			Version:          version,
			Idempotent:       claim.Duplicate,
		}, nil
	}

	now := s.now().UTC()
	challenge.Status = model.ChallengeStatusCompleted
	challenge.CompletedAt = &now
	if err := s.save(ctx, pairID, challenge, now); err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	bumped, err := s.state.Bump(ctx, pairID, ActionChallengeCompleted)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	log.Info().Str("pairId", pairID).Str("challengeId", challengeID).Msg("challenge completed")
	return &ChallengeCompletion{AwaitingApproval: true, Version: bumped[model.CounterGlobal]}, nil
}

// Approve closes a completed challenge and records it as a done mission.
// Approving a pending challenge is rejected.
func (s *ChallengeService) Approve(ctx context.Context, pairID, challengeID, updateID string) (*ChallengeApproval, error) {
	if challengeID == "" {
		return nil, apperrors.MissingRequired("challengeId")
	}

	claim, err := s.guard.Claim(ctx, pairID, "challenge-approve", updateID, challengeID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	challenge, err := s.load(ctx, pairID, challengeID)
	if err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	if claim.Duplicate || challenge.Status == model.ChallengeStatusApproved {
		version, err := s.state.Version(ctx, pairID, model.CounterGlobal)
		if err != nil {
			return nil, apperrors.UpstreamUnavailable("store", err)
		}
		return &ChallengeApproval{Version: version, Idempotent: claim.Duplicate}, nil
	}

	if !challenge.Status.Advances(model.ChallengeStatusApproved) {
		s.guard.Release(ctx, claim)
		return nil, apperrors.InvalidStateTransition("challenge", string(challenge.Status), string(model.ChallengeStatusApproved))
	}

	now := s.now()
	before, err := s.energy.Compute(ctx, pairID, now)
	if err != nil {
		s.guard.Release(ctx, claim)
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	if _, err := s.missions.InsertBridge(ctx, pairID, challenge); err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	approved := now.UTC()
	challenge.Status = model.ChallengeStatusApproved
	challenge.ApprovedAt = &approved
	if err := s.save(ctx, pairID, challenge, now); err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	bumped, err := s.state.Bump(ctx, pairID, ActionChallengeApproved)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	after, err := s.energy.Compute(ctx, pairID, now)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	log.Info().Str("pairId", pairID).Str("challengeId", challengeID).Msg("challenge approved")
	return &ChallengeApproval{
		SyncEnergyDelta: Delta(before, after),
		Version:         bumped[model.CounterGlobal],
	}, nil
}

// List returns the pair's live challenges, newest first. Ids whose record has
// expired are dropped from the index.
func (s *ChallengeService) List(ctx context.Context, pairID string) ([]*model.Challenge, error) {
	setKey := redisclient.ChallengeSetKey(pairID)
	ids, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	challenges := make([]*model.Challenge, 0, len(ids))
	for _, id := range ids {
		var c model.Challenge
		found, err := s.redis.GetJSON(ctx, redisclient.ChallengeKey(pairID, id), &c)
		if err != nil {
			return nil, apperrors.UpstreamUnavailable("store", err)
		}
		if !found {
			NonCritical(ctx, "challenge index prune", func(ctx context.Context) error {
				return s.redis.SRem(ctx, setKey, id).Err()
			})
			continue
		}
		challenges = append(challenges, &c)
	}

	sort.Slice(challenges, func(i, j int) bool {
		return challenges[i].CreatedAt.After(challenges[j].CreatedAt)
	})
	return challenges, nil
}

func (s *ChallengeService) load(ctx context.Context, pairID, challengeID string) (*model.Challenge, error) {
	var c model.Challenge
	found, err := s.redis.GetJSON(ctx, redisclient.ChallengeKey(pairID, challengeID), &c)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if !found {
		return nil, apperrors.NotFound("challenge")
	}
	return &c, nil
}

// save rewrites the record with a TTL that never outlives its expiresAt.
func (s *ChallengeService) save(ctx context.Context, pairID string, c *model.Challenge, now time.Time) error {
	ttl := c.ExpiresAt.Sub(now)
	if ttl > s.ttl {
		ttl = s.ttl
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.redis.SetJSON(ctx, redisclient.ChallengeKey(pairID, c.ID), c, ttl); err != nil {
		return apperrors.UpstreamUnavailable("store", err)
	}
	return nil
}
