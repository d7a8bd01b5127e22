package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"roundbets/events"
	"roundbets/models"

	log "github.com/sirupsen/logrus"
)

// roundService implements the RoundService interface
type roundService struct {
	uowFactory UnitOfWorkFactory
	authorizer Authorizer
	now        func() time.Time
}

// NewRoundService creates a new round service
func NewRoundService(uowFactory UnitOfWorkFactory, authorizer Authorizer) RoundService {
	return &roundService{
		uowFactory: uowFactory,
		authorizer: authorizer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateRound opens a new round for betting
func (s *roundService) CreateRound(ctx context.Context, actor *models.Actor, params models.NewRound) (*models.Round, error) {
	if err := requireAdmin(s.authorizer, actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(params.Title)
	optionA := strings.TrimSpace(params.OptionA)
	optionB := strings.TrimSpace(params.OptionB)
	switch {
	case title == "":
		return nil, newError(KindMissingField, "title is required")
	case optionA == "":
		return nil, newError(KindMissingField, "optionA is required")
	case optionB == "":
		return nil, newError(KindMissingField, "optionB is required")
	}

	round := &models.Round{
		Title:   title,
		OptionA: optionA,
		OptionB: optionB,
		Status:  models.RoundStatusOpen,
	}
	if desc := strings.TrimSpace(params.Description); desc != "" {
		round.Description = &desc
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.RoundRepository().Create(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	uow.EventBus().Publish(events.RoundCreatedEvent{
		RoundID: round.ID,
		Title:   round.Title,
		OptionA: round.OptionA,
		OptionB: round.OptionB,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID": round.ID,
		"title":   round.Title,
		"actor":   actor.UserID,
	}).Info("Round created")

	return round, nil
}

// SetRoundLock locks or reopens betting on a round that has not been settled
func (s *roundService) SetRoundLock(ctx context.Context, actor *models.Actor, roundID string, locked bool) (*models.Round, error) {
	if err := requireAdmin(s.authorizer, actor); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	if !round.IsOpen() {
		return nil, ErrInvalidLifecycleTransition
	}

	if round.Locked != locked {
		if err := uow.RoundRepository().SetLocked(ctx, roundID, locked); err != nil {
			return nil, fmt.Errorf("failed to update round lock: %w", err)
		}
		round.Locked = locked

		uow.EventBus().Publish(events.RoundLockChangedEvent{
			RoundID: round.ID,
			Title:   round.Title,
			Locked:  locked,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return round, nil
}

// SettleRound resolves a round with the winning option and distributes the pool.
// The round row stays locked for the whole settlement so no bet can slip in.
func (s *roundService) SettleRound(ctx context.Context, actor *models.Actor, roundID string, winner models.Option) (*models.SettlementResult, error) {
	if err := requireAdmin(s.authorizer, actor); err != nil {
		return nil, err
	}
	if !winner.IsValid() {
		return nil, ErrInvalidOption
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	if !round.IsOpen() {
		return nil, ErrRoundNotActive
	}

	bets, err := uow.BetRepository().GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	result := ComputeSettlement(bets, winner)

	if len(result.Payouts) > 0 {
		if err := uow.BetRepository().UpdatePayouts(ctx, result.Payouts); err != nil {
			return nil, fmt.Errorf("failed to update payouts: %w", err)
		}
	}

	// Credit in ascending user order so concurrent work locks users in the same order
	winners := make([]*models.Bet, len(result.Winners))
	copy(winners, result.Winners)
	sort.Slice(winners, func(i, j int) bool { return winners[i].UserID < winners[j].UserID })

	for _, bet := range winners {
		payout := result.Payouts[bet.ID]
		if payout == 0 {
			continue
		}
		newCredits, err := uow.UserRepository().AddCredits(ctx, bet.UserID, payout)
		if err != nil {
			return nil, fmt.Errorf("failed to credit winner: %w", err)
		}

		roundIDCopy := round.ID
		betIDCopy := bet.ID
		entry := &models.LedgerEntry{
			UserID:        bet.UserID,
			CreditsBefore: newCredits - payout,
			CreditsAfter:  newCredits,
			ChangeAmount:  payout,
			EntryType:     models.LedgerEntryRoundPayout,
			Metadata: map[string]any{
				"round_title": round.Title,
				"bet_amount":  bet.Amount,
				"option":      string(bet.Option),
			},
			RoundID: &roundIDCopy,
			BetID:   &betIDCopy,
		}
		if err := RecordCreditChange(ctx, uow, entry); err != nil {
			return nil, fmt.Errorf("failed to record payout: %w", err)
		}
	}

	settledAt := s.now()
	if err := uow.RoundRepository().MarkSettled(ctx, roundID, winner, settledAt); err != nil {
		if errors.Is(err, ErrRoundAlreadySettled) {
			return nil, ErrRoundNotActive
		}
		return nil, fmt.Errorf("failed to settle round: %w", err)
	}

	round.Status = models.RoundStatusSettled
	round.Winner = &winner
	round.SettledAt = &settledAt
	result.Round = round

	for _, bet := range bets {
		payout := result.Payouts[bet.ID]
		bet.Payout = &payout
	}

	uow.EventBus().Publish(events.RoundSettledEvent{
		RoundID:     round.ID,
		Title:       round.Title,
		Winner:      string(winner),
		WinnerLabel: round.OptionLabel(winner),
		TotalPool:   result.TotalPool,
		WinningPool: result.WinningPool,
		WinnerCount: len(result.Winners),
		LoserCount:  len(result.Losers),
		NoWinners:   result.NoWinners,
		SettledAt:   settledAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":     round.ID,
		"winner":      winner,
		"totalPool":   result.TotalPool,
		"winningPool": result.WinningPool,
		"winners":     len(result.Winners),
		"losers":      len(result.Losers),
		"residual":    result.Residual,
		"noWinners":   result.NoWinners,
	}).Info("Round settled")

	return result, nil
}

// ListRounds returns every round newest first with derived pool totals
func (s *roundService) ListRounds(ctx context.Context) ([]*models.RoundSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	summaries, err := uow.RoundRepository().ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return summaries, nil
}
