package service

import (
	"context"
	"fmt"

	"roundbets/models"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
	authorizer Authorizer
}

// NewStatsService creates a new statistics service
func NewStatsService(uowFactory UnitOfWorkFactory, authorizer Authorizer) StatsService {
	return &statsService{
		uowFactory: uowFactory,
		authorizer: authorizer,
	}
}

// profileLedgerLimit caps the credit history returned with a profile
const profileLedgerLimit = 50

// GetUserProfile returns the actor's balance together with their full bet history
func (s *statsService) GetUserProfile(ctx context.Context, actor *models.Actor) (*models.UserProfile, error) {
	if actor == nil || actor.UserID == "" {
		return nil, ErrUnauthorized
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	bets, err := uow.BetRepository().GetByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	ledger, err := uow.LedgerRepository().GetByUser(ctx, user.ID, profileLedgerLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	return &models.UserProfile{
		User:   user,
		Bets:   bets,
		Ledger: ledger,
		Totals: AggregateBets(bets),
	}, nil
}

// GetLeaderboard ranks every user by credits. Admin only.
func (s *statsService) GetLeaderboard(ctx context.Context, actor *models.Actor) ([]*models.LeaderboardEntry, error) {
	if err := requireAdmin(s.authorizer, actor); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetAllRanked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	bets, err := uow.BetRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	return BuildLeaderboard(users, bets), nil
}

// AggregateBets totals stakes and payouts. Unsettled bets count their stake but no payout.
func AggregateBets(bets []*models.Bet) models.BetTotals {
	var totals models.BetTotals
	for _, bet := range bets {
		totals.TotalBets++
		totals.TotalBetAmount += bet.Amount
		totals.TotalPayout += bet.PayoutOrZero()
	}
	totals.NetProfit = totals.TotalPayout - totals.TotalBetAmount
	return totals
}

// BuildLeaderboard joins users with their bets. Users must already be in rank order.
func BuildLeaderboard(users []*models.User, bets []*models.Bet) []*models.LeaderboardEntry {
	byUser := make(map[string][]*models.Bet, len(users))
	for _, bet := range bets {
		byUser[bet.UserID] = append(byUser[bet.UserID], bet)
	}

	entries := make([]*models.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entries = append(entries, &models.LeaderboardEntry{
			Rank:    i + 1,
			UserID:  user.ID,
			Name:    user.Name,
			Email:   user.Email,
			Credits: user.Credits,
			Totals:  AggregateBets(byUser[user.ID]),
		})
	}
	return entries
}
