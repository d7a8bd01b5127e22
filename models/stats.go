package models

// BetTotals aggregates a set of bets
type BetTotals struct {
	TotalBets      int   `json:"totalBets"`
	TotalBetAmount int64 `json:"totalBetAmount"`
	TotalPayout    int64 `json:"totalPayout"`
	NetProfit      int64 `json:"netProfit"`
}

// UserProfile represents a user's credits and betting history
type UserProfile struct {
	User   *User
	Bets   []*Bet
	Ledger []*LedgerEntry // Most recent first
	Totals BetTotals
}

// LeaderboardEntry represents a user's entry in the admin leaderboard
type LeaderboardEntry struct {
	Rank    int
	UserID  string
	Name    string
	Email   string
	Credits int64
	Totals  BetTotals
}
