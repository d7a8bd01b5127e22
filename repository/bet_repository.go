package repository

import (
	"context"
	"errors"
	"fmt"

	"roundbets/database"
	"roundbets/models"
	"roundbets/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	betColumns         = `id, user_id, round_id, option, amount, payout, created_at`
	betUserRoundUnique = "bets_user_round_unique"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	var (
		bet    models.Bet
		option string
	)
	err := row.Scan(
		&bet.ID,
		&bet.UserID,
		&bet.RoundID,
		&option,
		&bet.Amount,
		&bet.Payout,
		&bet.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	bet.Option = models.Option(option)
	return &bet, nil
}

func (r *BetRepository) list(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}

// Create inserts a new unsettled bet
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (id, user_id, round_id, option, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	id := uuid.New().String()
	err := r.q.QueryRow(ctx, query,
		id,
		bet.UserID,
		bet.RoundID,
		string(bet.Option),
		bet.Amount,
	).Scan(&bet.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, betUserRoundUnique) {
			return fmt.Errorf("user %s on round %s: %w", bet.UserID, bet.RoundID, service.ErrBetExists)
		}
		return fmt.Errorf("failed to create bet: %w", err)
	}

	bet.ID = id
	bet.Payout = nil
	return nil
}

// GetByUserAndRound returns the user's bet on a round
func (r *BetRepository) GetByUserAndRound(ctx context.Context, userID, roundID string) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE user_id = $1 AND round_id = $2`

	bet, err := scanBet(r.q.QueryRow(ctx, query, userID, roundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet for user %s on round %s: %w", userID, roundID, err)
	}
	return bet, nil
}

// GetByRound returns all bets on a round ordered by user
func (r *BetRepository) GetByRound(ctx context.Context, roundID string) ([]*models.Bet, error) {
	return r.list(ctx, `SELECT `+betColumns+` FROM bets WHERE round_id = $1 ORDER BY user_id`, roundID)
}

// GetByUser returns a user's bets newest first
func (r *BetRepository) GetByUser(ctx context.Context, userID string) ([]*models.Bet, error) {
	return r.list(ctx, `SELECT `+betColumns+` FROM bets WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// GetAll returns every bet
func (r *BetRepository) GetAll(ctx context.Context) ([]*models.Bet, error) {
	return r.list(ctx, `SELECT `+betColumns+` FROM bets ORDER BY created_at, id`)
}

// UpdatePayouts writes payouts for unsettled bets in a single round trip
func (r *BetRepository) UpdatePayouts(ctx context.Context, payouts map[string]int64) error {
	if len(payouts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for betID, payout := range payouts {
		batch.Queue(`UPDATE bets SET payout = $2 WHERE id = $1 AND payout IS NULL`, betID, payout)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for range payouts {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("failed to update bet payout: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("bet payout already written or bet missing")
		}
	}

	return nil
}

// SumStakesByUser returns the total a user has ever staked
func (r *BetRepository) SumStakesByUser(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM bets WHERE user_id = $1`

	var total int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum stakes for user %s: %w", userID, err)
	}
	return total, nil
}
