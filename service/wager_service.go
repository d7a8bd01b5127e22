package service

import (
	"context"
	"errors"
	"fmt"

	"roundbets/models"

	log "github.com/sirupsen/logrus"
)

// wagerService implements the WagerService interface
type wagerService struct {
	uowFactory UnitOfWorkFactory
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory UnitOfWorkFactory) WagerService {
	return &wagerService{uowFactory: uowFactory}
}

// PlaceBet validates and records a single bet, debiting the stake in the same transaction
func (s *wagerService) PlaceBet(ctx context.Context, actor *models.Actor, roundID string, option models.Option, amount int64) (*models.Bet, error) {
	if actor == nil || actor.UserID == "" {
		return nil, ErrUnauthorized
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !option.IsValid() {
		return nil, ErrInvalidOption
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Round first, then user. Settlement takes the round lock first too.
	round, err := uow.RoundRepository().GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil || !round.CanAcceptBets() {
		return nil, ErrRoundNotBettable
	}

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	existing, err := uow.BetRepository().GetByUserAndRound(ctx, user.ID, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing bet: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateBet
	}

	if !user.HasCredits(amount) {
		return nil, ErrInsufficientCredits
	}

	bet := &models.Bet{
		UserID:  user.ID,
		RoundID: round.ID,
		Option:  option,
		Amount:  amount,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		if errors.Is(err, ErrBetExists) {
			return nil, ErrDuplicateBet
		}
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	if err := uow.UserRepository().DeductCredits(ctx, user.ID, amount); err != nil {
		if errors.Is(err, ErrCreditsTooLow) {
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("failed to deduct credits: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  user.ID,
		"roundID": round.ID,
		"option":  option,
		"amount":  amount,
	}).Debug("Bet placed")

	return bet, nil
}
