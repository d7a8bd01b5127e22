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

const userColumns = `id, name, email, credits, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Credits,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user and holds a row lock until the transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// CreateIfAbsent inserts a user unless the email is taken.
// When another transaction won the insert, the existing row is returned with created=false.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, name, email string, initialCredits int64) (*models.User, bool, error) {
	query := `
		INSERT INTO users (id, name, email, credits)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, uuid.New().String(), name, email, initialCredits))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("user with email %s vanished after conflict", email)
	}
	return existing, false, nil
}

// AddCredits adds to a user's credits and returns the new balance
func (r *UserRepository) AddCredits(ctx context.Context, id string, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET credits = credits + $2
		WHERE id = $1
		RETURNING credits
	`

	var credits int64
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user %s not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add credits for user %s: %w", id, err)
	}
	return credits, nil
}

// DeductCredits subtracts from a user's credits only when the balance covers it
func (r *UserRepository) DeductCredits(ctx context.Context, id string, amount int64) error {
	query := `
		UPDATE users
		SET credits = credits - $2
		WHERE id = $1 AND credits >= $2
	`

	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to deduct credits for user %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, service.ErrCreditsTooLow)
	}
	return nil
}

// GetAllRanked returns all users ordered for the leaderboard
func (r *UserRepository) GetAllRanked(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY credits DESC, created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
