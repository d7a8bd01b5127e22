package service

import (
	"context"
	"fmt"
	"strings"

	"roundbets/models"

	log "github.com/sirupsen/logrus"
)

// DefaultStartingCredits is the grant a new user receives on first sign-in
const DefaultStartingCredits int64 = 100

// userService implements the UserService interface
type userService struct {
	uowFactory      UnitOfWorkFactory
	startingCredits int64
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, startingCredits int64) UserService {
	if startingCredits <= 0 {
		startingCredits = DefaultStartingCredits
	}
	return &userService{
		uowFactory:      uowFactory,
		startingCredits: startingCredits,
	}
}

// GetOrCreateUser retrieves an existing user or creates a new one with the starting grant
func (s *userService) GetOrCreateUser(ctx context.Context, identity models.Identity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, newError(KindMissingField, "email is required")
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = email
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	// The unique email constraint decides which concurrent sign-in gets the grant
	user, created, err := uow.UserRepository().CreateIfAbsent(ctx, name, email, s.startingCredits)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if !created {
		return user, nil
	}

	entry := &models.LedgerEntry{
		UserID:        user.ID,
		CreditsBefore: 0,
		CreditsAfter:  user.Credits,
		ChangeAmount:  user.Credits,
		EntryType:     models.LedgerEntryInitialGrant,
		Metadata: map[string]any{
			"name":  name,
			"email": email,
		},
	}
	if err := RecordCreditChange(ctx, uow, entry); err != nil {
		return nil, fmt.Errorf("failed to record initial grant: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  user.ID,
		"credits": user.Credits,
	}).Info("Created user with starting credits")

	return user, nil
}

// ReconcileUser verifies credits = grants + payouts - stakes for one user
func (s *userService) ReconcileUser(ctx context.Context, userID string) (*models.Reconciliation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	sums, err := uow.LedgerRepository().SumByType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	staked, err := uow.BetRepository().SumStakesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum stakes: %w", err)
	}

	rec := &models.Reconciliation{
		UserID:  userID,
		Credits: user.Credits,
		Granted: sums[models.LedgerEntryInitialGrant],
		PaidOut: sums[models.LedgerEntryRoundPayout],
		Staked:  staked,
	}
	rec.Expected = rec.Granted + rec.PaidOut - rec.Staked
	rec.IsConsistent = rec.Expected == rec.Credits

	if !rec.IsConsistent {
		log.WithFields(log.Fields{
			"userID":   userID,
			"credits":  rec.Credits,
			"expected": rec.Expected,
		}).Warn("Credit ledger does not reconcile")
	}

	return rec, nil
}
