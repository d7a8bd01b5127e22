package testutil

import (
	"context"
	"fmt"
	"testing"

	"roundbets/database"
	"roundbets/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// InsertUser creates a user row directly with the given credits
func InsertUser(t *testing.T, db *database.DB, name string, credits int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:      uuid.New().String(),
		Name:    name,
		Email:   fmt.Sprintf("%s-%s@example.com", name, uuid.New().String()[:8]),
		Credits: credits,
	}
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (id, name, email, credits) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		user.ID, user.Name, user.Email, user.Credits,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	require.NoError(t, err)
	return user
}

// InsertRound creates an open round directly
func InsertRound(t *testing.T, db *database.DB, title string) *models.Round {
	t.Helper()
	round := &models.Round{
		ID:      uuid.New().String(),
		Title:   title,
		OptionA: "Yes",
		OptionB: "No",
		Status:  models.RoundStatusOpen,
	}
	err := db.QueryRow(context.Background(),
		`INSERT INTO rounds (id, title, option_a, option_b) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		round.ID, round.Title, round.OptionA, round.OptionB,
	).Scan(&round.CreatedAt)
	require.NoError(t, err)
	return round
}

// CreateTestLedgerEntry builds an unsaved ledger entry
func CreateTestLedgerEntry(userID string, entryType models.LedgerEntryType, before, change int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		UserID:        userID,
		CreditsBefore: before,
		CreditsAfter:  before + change,
		ChangeAmount:  change,
		EntryType:     entryType,
		Metadata: map[string]any{
			"test": true,
		},
	}
}
