package models

import "time"

// Bet represents one user's stake on one option of one round
type Bet struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	RoundID   string    `db:"round_id" json:"roundId"`
	Option    Option    `db:"option" json:"option"`
	Amount    int64     `db:"amount" json:"amount"`
	Payout    *int64    `db:"payout" json:"payout"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// IsSettled checks if a payout has been written for the bet
func (b *Bet) IsSettled() bool {
	return b.Payout != nil
}

// PayoutOrZero returns the payout, treating an unsettled bet as zero
func (b *Bet) PayoutOrZero() int64 {
	if b.Payout == nil {
		return 0
	}
	return *b.Payout
}

// SettlementResult represents the outcome of settling a round
type SettlementResult struct {
	Round       *Round
	Winner      Option
	TotalPool   int64
	WinningPool int64
	Winners     []*Bet
	Losers      []*Bet
	Payouts     map[string]int64 // Bet ID -> payout amount
	Residual    int64            // Pool left undistributed by floor rounding
	NoWinners   bool
}

// TotalPaidOut returns the sum of all payouts
func (r *SettlementResult) TotalPaidOut() int64 {
	var total int64
	for _, p := range r.Payouts {
		total += p
	}
	return total
}
