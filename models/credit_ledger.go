package models

import (
	"time"
)

// LedgerEntryType represents the reason for a credit change
type LedgerEntryType string

const (
	LedgerEntryInitialGrant LedgerEntryType = "initial_grant"
	LedgerEntryRoundPayout  LedgerEntryType = "round_payout"
)

// LedgerEntry records a credit increase for a user.
// Debits are recorded by the bets themselves.
type LedgerEntry struct {
	ID            int64           `db:"id"`
	UserID        string          `db:"user_id"`
	CreditsBefore int64           `db:"credits_before"`
	CreditsAfter  int64           `db:"credits_after"`
	ChangeAmount  int64           `db:"change_amount"`
	EntryType     LedgerEntryType `db:"entry_type"`
	Metadata      map[string]any  `db:"metadata"`
	RoundID       *string         `db:"round_id"`
	BetID         *string         `db:"bet_id"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Reconciliation compares a user's balance against their ledger and bets
type Reconciliation struct {
	UserID       string
	Credits      int64
	Granted      int64
	PaidOut      int64
	Staked       int64
	Expected     int64
	IsConsistent bool
}
