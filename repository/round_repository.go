package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roundbets/database"
	"roundbets/models"
	"roundbets/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roundColumns = `r.id, r.title, r.description, r.option_a, r.option_b, r.status, r.locked, r.winner, r.created_at, r.settled_at`

// RoundRepository implements the RoundRepository interface
type RoundRepository struct {
	q queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

// newRoundRepositoryWithTx creates a new round repository with a transaction
func newRoundRepositoryWithTx(tx queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

// scanRound reads roundColumns followed by any extra destinations
func scanRound(row pgx.Row, extra ...any) (*models.Round, error) {
	var (
		round  models.Round
		status string
		winner *string
	)
	dest := []any{
		&round.ID,
		&round.Title,
		&round.Description,
		&round.OptionA,
		&round.OptionB,
		&status,
		&round.Locked,
		&winner,
		&round.CreatedAt,
		&round.SettledAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	round.Status = models.RoundStatus(status)
	if winner != nil {
		w := models.Option(*winner)
		round.Winner = &w
	}
	return &round, nil
}

// Create inserts a new open round
func (r *RoundRepository) Create(ctx context.Context, round *models.Round) error {
	query := `
		INSERT INTO rounds (id, title, description, option_a, option_b, status, locked)
		VALUES ($1, $2, $3, $4, $5, 'open', FALSE)
		RETURNING created_at
	`

	id := uuid.New().String()
	err := r.q.QueryRow(ctx, query,
		id,
		round.Title,
		round.Description,
		round.OptionA,
		round.OptionB,
	).Scan(&round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}

	round.ID = id
	round.Status = models.RoundStatusOpen
	round.Locked = false
	return nil
}

func (r *RoundRepository) getOne(ctx context.Context, query, id string) (*models.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return round, err
}

// GetByID retrieves a round by ID
func (r *RoundRepository) GetByID(ctx context.Context, id string) (*models.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds r WHERE r.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round %s: %w", id, err)
	}
	return round, nil
}

// GetByIDForUpdate retrieves a round and holds a row lock until the transaction ends
func (r *RoundRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds r WHERE r.id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock round %s: %w", id, err)
	}
	return round, nil
}

// SetLocked updates the locked flag of an open round
func (r *RoundRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	query := `
		UPDATE rounds
		SET locked = $2
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.q.Exec(ctx, query, id, locked)
	if err != nil {
		return fmt.Errorf("failed to update lock for round %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %s: %w", id, service.ErrRoundAlreadySettled)
	}
	return nil
}

// MarkSettled records the winner and moves an open round to settled
func (r *RoundRepository) MarkSettled(ctx context.Context, id string, winner models.Option, settledAt time.Time) error {
	query := `
		UPDATE rounds
		SET status = 'settled', winner = $2, settled_at = $3
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.q.Exec(ctx, query, id, string(winner), settledAt)
	if err != nil {
		return fmt.Errorf("failed to settle round %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %s: %w", id, service.ErrRoundAlreadySettled)
	}
	return nil
}

// ListSummaries returns all rounds newest first with bet counts and per-option pools
func (r *RoundRepository) ListSummaries(ctx context.Context) ([]*models.RoundSummary, error) {
	query := `
		SELECT ` + roundColumns + `,
			COUNT(b.id) AS bet_count,
			COALESCE(SUM(b.amount) FILTER (WHERE b.option = 'A'), 0)::BIGINT AS pool_a,
			COALESCE(SUM(b.amount) FILTER (WHERE b.option = 'B'), 0)::BIGINT AS pool_b
		FROM rounds r
		LEFT JOIN bets b ON b.round_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var summaries []*models.RoundSummary
	for rows.Next() {
		var s models.RoundSummary
		round, err := scanRound(rows, &s.BetCount, &s.PoolA, &s.PoolB)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round summary: %w", err)
		}
		s.Round = round
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}

	return summaries, nil
}
