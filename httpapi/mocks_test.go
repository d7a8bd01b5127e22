package httpapi

import (
	"context"

	"roundbets/models"

	"github.com/stretchr/testify/mock"
)

type stubSessions map[string]*models.Actor

func (s stubSessions) Resolve(_ context.Context, token string) (*models.Actor, error) {
	return s[token], nil
}

type mockWagerService struct {
	mock.Mock
}

func (m *mockWagerService) PlaceBet(ctx context.Context, actor *models.Actor, roundID string, option models.Option, amount int64) (*models.Bet, error) {
	args := m.Called(ctx, actor, roundID, option, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

type mockRoundService struct {
	mock.Mock
}

func (m *mockRoundService) CreateRound(ctx context.Context, actor *models.Actor, params models.NewRound) (*models.Round, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *mockRoundService) SetRoundLock(ctx context.Context, actor *models.Actor, roundID string, locked bool) (*models.Round, error) {
	args := m.Called(ctx, actor, roundID, locked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *mockRoundService) SettleRound(ctx context.Context, actor *models.Actor, roundID string, winner models.Option) (*models.SettlementResult, error) {
	args := m.Called(ctx, actor, roundID, winner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettlementResult), args.Error(1)
}

func (m *mockRoundService) ListRounds(ctx context.Context) ([]*models.RoundSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoundSummary), args.Error(1)
}

type mockStatsService struct {
	mock.Mock
}

func (m *mockStatsService) GetUserProfile(ctx context.Context, actor *models.Actor) (*models.UserProfile, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *mockStatsService) GetLeaderboard(ctx context.Context, actor *models.Actor) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}
