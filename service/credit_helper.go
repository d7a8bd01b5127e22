package service

import (
	"context"
	"fmt"

	"roundbets/events"
	"roundbets/models"
)

// RecordCreditChange records a ledger entry and queues the matching events.
// Every credit increase in the system goes through here.
func RecordCreditChange(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) error {
	if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	changed := events.CreditsChangedEvent{
		UserID:       entry.UserID,
		OldCredits:   entry.CreditsBefore,
		NewCredits:   entry.CreditsAfter,
		ChangeAmount: entry.ChangeAmount,
		EntryType:    string(entry.EntryType),
	}
	if entry.RoundID != nil {
		changed.RoundID = *entry.RoundID
	}
	uow.EventBus().Publish(changed)

	if entry.EntryType == models.LedgerEntryInitialGrant {
		name, _ := entry.Metadata["name"].(string)
		email, _ := entry.Metadata["email"].(string)
		uow.EventBus().Publish(events.UserCreatedEvent{
			UserID:         entry.UserID,
			Name:           name,
			Email:          email,
			InitialCredits: entry.CreditsAfter,
		})
	}

	return nil
}
