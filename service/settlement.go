package service

import (
	"math/bits"

	"roundbets/models"
)

// ComputeSettlement splits the pooled stakes of a round among the bets on the winning option.
// Each winner receives amount*totalPool/winningPool, truncated. Losers receive 0.
// When nobody backed the winner every payout is 0 and NoWinners is set.
// The input bets are not modified.
func ComputeSettlement(bets []*models.Bet, winner models.Option) *models.SettlementResult {
	result := &models.SettlementResult{
		Winner:  winner,
		Payouts: make(map[string]int64, len(bets)),
	}

	for _, bet := range bets {
		result.TotalPool += bet.Amount
		if bet.Option == winner {
			result.WinningPool += bet.Amount
			result.Winners = append(result.Winners, bet)
		} else {
			result.Losers = append(result.Losers, bet)
		}
	}

	if result.WinningPool == 0 {
		result.NoWinners = true
		for _, bet := range bets {
			result.Payouts[bet.ID] = 0
		}
		result.Residual = result.TotalPool
		return result
	}

	var paid int64
	for _, bet := range result.Winners {
		payout := calculatePayout(bet.Amount, result.WinningPool, result.TotalPool)
		result.Payouts[bet.ID] = payout
		paid += payout
	}
	for _, bet := range result.Losers {
		result.Payouts[bet.ID] = 0
	}
	result.Residual = result.TotalPool - paid

	return result
}

// calculatePayout returns the proportional share of the pool for a winning stake.
// The product is taken in 128 bits. amount <= winningPool keeps the high word
// below the divisor, and the quotient is at most totalPool.
func calculatePayout(amount, winningPool, totalPool int64) int64 {
	if winningPool <= 0 || amount <= 0 || totalPool <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(amount), uint64(totalPool))
	quo, _ := bits.Div64(hi, lo, uint64(winningPool))
	return int64(quo)
}
