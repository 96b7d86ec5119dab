package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/util"
)

const maxNoteLength = 280

type ReactionInput struct {
	PairID   string
	Reaction string
	Note     string
	UpdateID string
}

type ReactionResult struct {
	Idempotent bool `json:"idempotent,omitempty"`
}

type KudosResult struct {
	SyncEnergyDelta int        `json:"syncEnergyDelta"`
	GlowUntil       *time.Time `json:"glowUntil"`
	Idempotent      bool       `json:"idempotent,omitempty"`
}

type ReactionService struct {
	redis      *redisclient.Client
	state      *StateService
	guard      *IdempotencyGuard
	scores     *ScoreService
	energy     *EnergyService
	ttl        time.Duration
	ecologyTTL time.Duration
	glow       time.Duration
	now        func() time.Time
}

func NewReactionService(
	redis *redisclient.Client,
	state *StateService,
	guard *IdempotencyGuard,
	scores *ScoreService,
	energy *EnergyService,
	ttl, ecologyTTL, glow time.Duration,
) *ReactionService {
	return &ReactionService{
		redis:      redis,
		state:      state,
		guard:      guard,
		scores:     scores,
		energy:     energy,
		ttl:        ttl,
		ecologyTTL: ecologyTTL,
		glow:       glow,
		now:        time.Now,
	}
}

// Record stores today's reaction, replacing any earlier one from the same day.
func (s *ReactionService) Record(ctx context.Context, in ReactionInput) (*ReactionResult, error) {
	if err := validateReaction(in); err != nil {
		return nil, err
	}

	now := s.now()
	claim, err := s.guard.Claim(ctx, in.PairID, "reaction", in.UpdateID, redisclient.DayKey(now))
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if claim.Duplicate {
		return &ReactionResult{Idempotent: true}, nil
	}

	if err := s.record(ctx, in, now); err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}
	return &ReactionResult{}, nil
}

// ConfirmKudos records a kudos reaction, lights the garden glow and reports
// how much this one action moved the pair's energy.
func (s *ReactionService) ConfirmKudos(ctx context.Context, in ReactionInput) (*KudosResult, error) {
	if in.Reaction == "" {
		in.Reaction = "kudos"
	}
	if err := validateReaction(in); err != nil {
		return nil, err
	}

	now := s.now()
	claim, err := s.guard.Claim(ctx, in.PairID, "kudos", in.UpdateID, redisclient.DayKey(now))
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	if claim.Duplicate {
		glow, err := s.glowUntil(ctx, in.PairID, now)
		if err != nil {
			return nil, apperrors.UpstreamUnavailable("store", err)
		}
		return &KudosResult{GlowUntil: glow, Idempotent: true}, nil
	}

	before, err := s.energy.Compute(ctx, in.PairID, now)
	if err != nil {
		s.guard.Release(ctx, claim)
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	if err := s.record(ctx, in, now); err != nil {
		s.guard.Release(ctx, claim)
		return nil, err
	}

	glow := now.UTC().Add(s.glow)
	NonCritical(ctx, "glow", func(ctx context.Context) error {
		key := redisclient.EcologyKey(in.PairID)
		if err := s.redis.HSet(ctx, key, "glowUntil", glow.Format(time.RFC3339)).Err(); err != nil {
			return err
		}
		return s.redis.Expire(ctx, key, s.ecologyTTL).Err()
	})

	after, err := s.energy.Compute(ctx, in.PairID, now)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	return &KudosResult{SyncEnergyDelta: Delta(before, after), GlowUntil: &glow}, nil
}

func (s *ReactionService) record(ctx context.Context, in ReactionInput, now time.Time) error {
	key := redisclient.ReactionKey(in.PairID, redisclient.DayKey(now))
	reaction := model.Reaction{
		Type: in.Reaction,
		Time: now.UTC().Format(time.RFC3339),
		Note: in.Note,
	}
	if err := s.redis.HSet(ctx, key, reaction).Err(); err != nil {
		return apperrors.UpstreamUnavailable("store", err)
	}
	if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return apperrors.UpstreamUnavailable("store", err)
	}

	if _, err := s.state.Bump(ctx, in.PairID, ActionReactionRecorded); err != nil {
		return apperrors.UpstreamUnavailable("store", err)
	}

	NonCritical(ctx, "peacePassion nudge", func(ctx context.Context) error {
		applied, err := s.scores.Nudge(ctx, in.PairID, KudosNudge)
		if err != nil || !applied {
			return err
		}
		_, err = s.state.Bump(ctx, in.PairID, ActionScoresNudged)
		return err
	})

	log.Info().Str("pairId", in.PairID).Str("reaction", in.Reaction).Msg("reaction recorded")
	return nil
}

func (s *ReactionService) glowUntil(ctx context.Context, pairID string, now time.Time) (*time.Time, error) {
	raw, err := s.redis.HGet(ctx, redisclient.EcologyKey(pairID), "glowUntil").Result()
	if redisclient.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseGlow(raw, now), nil
}

func validateReaction(in ReactionInput) error {
	if strings.TrimSpace(in.Reaction) == "" {
		return apperrors.MissingRequired("reaction")
	}
	if !util.IsValidEnum(in.Reaction, model.ReactionTypes) {
		return apperrors.InvalidInput("reaction", "must be one of "+strings.Join(model.ReactionTypes, ", "))
	}
	if utf8.RuneCountInString(in.Note) > maxNoteLength {
		return apperrors.InvalidInput("note", "must be at most 280 characters")
	}
	return nil
}

// parseGlow returns the glow deadline if it is still in the future.
func parseGlow(raw string, now time.Time) *time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil || !t.After(now) {
		return nil
	}
	return &t
}
