package service

import (
	"context"
	"time"

	"github.com/pairsync/sync-server/internal/catalog"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
)

type Readiness string

const (
	ReadinessReady   Readiness = "ready"
	ReadinessWarming Readiness = "warming"
	ReadinessRest    Readiness = "rest"
)

func ReadinessFor(score int) Readiness {
	switch {
	case score >= 55:
		return ReadinessReady
	case score >= 40:
		return ReadinessWarming
	default:
		return ReadinessRest
	}
}

type StatusView struct {
	Version     int64      `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Vibe        model.Mood `json:"vibe"`
	Readiness   Readiness  `json:"readiness"`
	Tips        []string   `json:"tips"`
}

type StatusService struct {
	state   *StateService
	energy  *EnergyService
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewStatusService(state *StateService, energy *EnergyService, cat *catalog.Catalog) *StatusService {
	return &StatusService{
		state:   state,
		energy:  energy,
		catalog: cat,
		now:     time.Now,
	}
}

// Version is the pair's global version, used for conditional reads.
func (s *StatusService) Version(ctx context.Context, pairID string) (int64, error) {
	v, err := s.state.Version(ctx, pairID, model.CounterGlobal)
	if err != nil {
		return 0, apperrors.UpstreamUnavailable("store", err)
	}
	return v, nil
}

func (s *StatusService) Status(ctx context.Context, pairID string) (*StatusView, error) {
	state, err := s.state.Get(ctx, pairID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}
	energy, err := s.energy.Compute(ctx, pairID, s.now())
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("store", err)
	}

	tips := s.catalog.TipsFor(string(energy.Weather))
	if tips == nil {
		tips = []string{}
	}

	return &StatusView{
		Version:     state.Version(model.CounterGlobal),
		LastUpdated: state.LastUpdated,
		Vibe:        energy.Mood,
		Readiness:   ReadinessFor(energy.Score),
		Tips:        tips,
	}, nil
}
