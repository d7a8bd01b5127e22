package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// unitOfWorkTxOptions is the isolation used for every request transaction.
// Correctness relies on row locks, not on serializable isolation.
var unitOfWorkTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// BeginReadCommitted starts a READ COMMITTED transaction
func (db *DB) BeginReadCommitted(ctx context.Context) (pgx.Tx, error) {
	tx, err := db.BeginTx(ctx, unitOfWorkTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// WithTransaction executes fn inside a transaction, committing on success and rolling back otherwise
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginReadCommitted(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v, original error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
