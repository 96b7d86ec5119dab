package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pairsync/sync-server/internal/catalog"
	"github.com/pairsync/sync-server/internal/config"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/redis/redistest"
	"github.com/pairsync/sync-server/internal/repository"
)

const testPairID = "0f8b2c1e-4a5d-4e6f-9a0b-1c2d3e4f5a6b"

// testNow is a Wednesday, mid-day UTC.
var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// Mock event publisher
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, pairID, eventType string, payload any) error {
	args := m.Called(ctx, pairID, eventType, payload)
	return args.Error(0)
}

// types lists the event types published so far, in order.
func (m *mockPublisher) types() []string {
	out := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		if call.Method == "PublishJSON" {
			out = append(out, call.Arguments.String(2))
		}
	}
	return out
}

// Mock ledger repository
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Record(ctx context.Context, pairID string, event model.LedgerEvent, detail string) error {
	args := m.Called(ctx, pairID, event, detail)
	return args.Error(0)
}

func (m *mockLedger) FindByPairID(ctx context.Context, pairID string, limit int) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, pairID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

func (m *mockLedger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type fixture struct {
	redis      *redisclient.Client
	mr         *miniredis.Miniredis
	publisher  *mockPublisher
	catalog    *catalog.Catalog
	limiter    *RateLimiter
	state      *StateService
	guard      *IdempotencyGuard
	energy     *EnergyService
	missions   *MissionService
	scores     *ScoreService
	reactions  *ReactionService
	challenges *ChallengeService
	garden     *GardenService
	status     *StatusService
	blocklist  *BlocklistService
	pairing    *PairingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client, mr := redistest.New(t)
	cat, err := catalog.Default()
	require.NoError(t, err)

	ttls := config.DefaultTTLs()
	pub := new(mockPublisher)
	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	clock := func() time.Time { return testNow }

	f := &fixture{redis: client, mr: mr, publisher: pub, catalog: cat}

	f.limiter = NewRateLimiter(client)
	f.limiter.now = clock
	f.state = NewStateService(client, pub, ttls.State)
	f.state.now = clock
	f.guard = NewIdempotencyGuard(client, ttls.Idempotency)
	f.energy = NewEnergyService(client)

	f.missions = NewMissionService(client, f.state, f.guard, cat, ttls.Missions)
	f.missions.now = clock
	f.scores = NewScoreService(client, f.state, f.energy, ttls.Scores)
	f.scores.now = clock
	f.reactions = NewReactionService(client, f.state, f.guard, f.scores, f.energy, ttls.Reaction, ttls.State, ttls.Glow)
	f.reactions.now = clock
	f.challenges = NewChallengeService(client, f.state, f.guard, f.missions, f.energy, ttls.Challenge)
	f.challenges.now = clock
	f.garden = NewGardenService(client, f.state, f.energy, ttls.State)
	f.garden.now = clock
	f.status = NewStatusService(f.state, f.energy, cat)
	f.status.now = clock
	f.blocklist = NewBlocklistService(client, repository.NopLedger{}, pub, ttls.Blocklist)
	f.pairing = NewPairingService(client, f.limiter, repository.NopLedger{}, pub, ttls)

	return f
}

func (f *fixture) version(t *testing.T, c model.Counter) int64 {
	t.Helper()
	v, err := f.state.Version(context.Background(), testPairID, c)
	require.NoError(t, err)
	return v
}
