package service

import (
	"context"
	"time"

	"roundbets/events"
	"roundbets/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, returning nil when absent
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email, returning nil when absent
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateIfAbsent inserts a user unless one with the same email exists.
	// The bool reports whether this call created the row.
	CreateIfAbsent(ctx context.Context, name, email string, initialCredits int64) (*models.User, bool, error)

	// AddCredits adds to a user's credits and returns the new balance
	AddCredits(ctx context.Context, id string, amount int64) (int64, error)

	// DeductCredits subtracts from a user's credits, failing with ErrCreditsTooLow if insufficient
	DeductCredits(ctx context.Context, id string, amount int64) error

	// GetAllRanked returns all users ordered by credits desc, then created_at, then id
	GetAllRanked(ctx context.Context) ([]*models.User, error)
}

// RoundRepository defines the interface for round data access
type RoundRepository interface {
	// Create inserts a round, filling in its ID and timestamps
	Create(ctx context.Context, round *models.Round) error

	// GetByID retrieves a round by ID, returning nil when absent
	GetByID(ctx context.Context, id string) (*models.Round, error)

	// GetByIDForUpdate retrieves a round and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.Round, error)

	// SetLocked updates the locked flag of an open round
	SetLocked(ctx context.Context, id string, locked bool) error

	// MarkSettled records the winner of an open round, failing with ErrRoundAlreadySettled otherwise
	MarkSettled(ctx context.Context, id string, winner models.Option, settledAt time.Time) error

	// ListSummaries returns all rounds newest first with their bet counts and pools
	ListSummaries(ctx context.Context) ([]*models.RoundSummary, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a bet, failing with ErrBetExists if the user already bet on the round
	Create(ctx context.Context, bet *models.Bet) error

	// GetByUserAndRound returns the user's bet on a round, or nil
	GetByUserAndRound(ctx context.Context, userID, roundID string) (*models.Bet, error)

	// GetByRound returns all bets on a round ordered by user ID
	GetByRound(ctx context.Context, roundID string) ([]*models.Bet, error)

	// GetByUser returns a user's bets newest first
	GetByUser(ctx context.Context, userID string) ([]*models.Bet, error)

	// GetAll returns every bet
	GetAll(ctx context.Context) ([]*models.Bet, error)

	// UpdatePayouts writes the settled payout of each bet (bet ID -> payout)
	UpdatePayouts(ctx context.Context, payouts map[string]int64) error

	// SumStakesByUser returns the total amount a user has staked
	SumStakesByUser(ctx context.Context, userID string) (int64, error)
}

// LedgerRepository defines the interface for credit ledger tracking
type LedgerRepository interface {
	// Record creates a new ledger entry
	Record(ctx context.Context, entry *models.LedgerEntry) error

	// GetByUser returns a user's ledger entries newest first
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)

	// SumByType returns the total change per entry type for a user
	SumByType(ctx context.Context, userID string) (map[models.LedgerEntryType]int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	RoundRepository() RoundRepository
	BetRepository() BetRepository
	LedgerRepository() LedgerRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreateUser returns the user for an identity, granting starting credits on first sight
	GetOrCreateUser(ctx context.Context, identity models.Identity) (*models.User, error)

	// ReconcileUser checks credits against grants, payouts and stakes
	ReconcileUser(ctx context.Context, userID string) (*models.Reconciliation, error)
}

// WagerService defines the interface for wager admission
type WagerService interface {
	// PlaceBet records one bet on an open, unlocked round and debits the stake
	PlaceBet(ctx context.Context, actor *models.Actor, roundID string, option models.Option, amount int64) (*models.Bet, error)
}

// RoundService defines the interface for the round lifecycle
type RoundService interface {
	// CreateRound opens a new round
	CreateRound(ctx context.Context, actor *models.Actor, params models.NewRound) (*models.Round, error)

	// SetRoundLock locks or unlocks betting on an open round
	SetRoundLock(ctx context.Context, actor *models.Actor, roundID string, locked bool) (*models.Round, error)

	// SettleRound declares the winner and pays out the pool
	SettleRound(ctx context.Context, actor *models.Actor, roundID string, winner models.Option) (*models.SettlementResult, error)

	// ListRounds returns every round newest first with pool totals
	ListRounds(ctx context.Context) ([]*models.RoundSummary, error)
}

// StatsService defines the interface for profile and leaderboard projections
type StatsService interface {
	// GetUserProfile returns the actor's credits and bet history
	GetUserProfile(ctx context.Context, actor *models.Actor) (*models.UserProfile, error)

	// GetLeaderboard returns every user ranked by credits
	GetLeaderboard(ctx context.Context, actor *models.Actor) ([]*models.LeaderboardEntry, error)
}
