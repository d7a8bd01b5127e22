package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"roundbets/database"
	"roundbets/models"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new credit ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new credit ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record creates a new ledger entry
func (r *LedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger metadata: %w", err)
	}

	query := `
		INSERT INTO credit_ledger
		(user_id, credits_before, credits_after, change_amount, entry_type, metadata, round_id, bet_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.CreditsBefore,
		entry.CreditsAfter,
		entry.ChangeAmount,
		string(entry.EntryType),
		metadataJSON,
		entry.RoundID,
		entry.BetID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry for user %s: %w", entry.UserID, err)
	}

	return nil
}

// GetByUser returns a user's ledger entries newest first
func (r *LedgerRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, credits_before, credits_after, change_amount,
		       entry_type, metadata, round_id, bet_id, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var (
			entry        models.LedgerEntry
			entryType    string
			metadataJSON []byte
		)
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.CreditsBefore,
			&entry.CreditsAfter,
			&entry.ChangeAmount,
			&entryType,
			&metadataJSON,
			&entry.RoundID,
			&entry.BetID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.EntryType = models.LedgerEntryType(entryType)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}

	return entries, nil
}

// SumByType returns the total change per entry type for a user
func (r *LedgerRepository) SumByType(ctx context.Context, userID string) (map[models.LedgerEntryType]int64, error) {
	query := `
		SELECT entry_type, COALESCE(SUM(change_amount), 0)::BIGINT
		FROM credit_ledger
		WHERE user_id = $1
		GROUP BY entry_type
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger for user %s: %w", userID, err)
	}
	defer rows.Close()

	sums := make(map[models.LedgerEntryType]int64)
	for rows.Next() {
		var (
			entryType string
			total     int64
		)
		if err := rows.Scan(&entryType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan ledger sum: %w", err)
		}
		sums[models.LedgerEntryType(entryType)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger sums: %w", err)
	}

	return sums, nil
}
