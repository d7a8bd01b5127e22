package models

import (
	"time"
)

// RoundStatus represents the persisted lifecycle status of a round
type RoundStatus string

const (
	RoundStatusOpen    RoundStatus = "open"
	RoundStatusSettled RoundStatus = "settled"
)

// RoundState is the externally visible lifecycle state.
// Locked is a sub-state of open and is derived from the locked flag.
type RoundState string

const (
	RoundStateOpen    RoundState = "open"
	RoundStateLocked  RoundState = "locked"
	RoundStateSettled RoundState = "settled"
)

// Option identifies one side of a binary round
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// IsValid reports whether the option is A or B
func (o Option) IsValid() bool {
	return o == OptionA || o == OptionB
}

// Round represents a binary-outcome betting event
type Round struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description *string     `db:"description" json:"description,omitempty"`
	OptionA     string      `db:"option_a" json:"optionA"`
	OptionB     string      `db:"option_b" json:"optionB"`
	Status      RoundStatus `db:"status" json:"status"`
	Locked      bool        `db:"locked" json:"locked"`
	Winner      *Option     `db:"winner" json:"winner,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	SettledAt   *time.Time  `db:"settled_at" json:"settledAt,omitempty"`
}

// NewRound holds the fields an administrator supplies when creating a round
type NewRound struct {
	Title       string
	Description string
	OptionA     string
	OptionB     string
}

// IsOpen checks if the round has not been settled yet
func (r *Round) IsOpen() bool {
	return r.Status == RoundStatusOpen
}

// IsSettled checks if the round has been settled
func (r *Round) IsSettled() bool {
	return r.Status == RoundStatusSettled
}

// CanAcceptBets checks if the round is open and not locked
func (r *Round) CanAcceptBets() bool {
	return r.IsOpen() && !r.Locked
}

// State returns the derived lifecycle state
func (r *Round) State() RoundState {
	switch {
	case r.IsSettled():
		return RoundStateSettled
	case r.Locked:
		return RoundStateLocked
	default:
		return RoundStateOpen
	}
}

// OptionLabel returns the display text for an option
func (r *Round) OptionLabel(o Option) string {
	switch o {
	case OptionA:
		return r.OptionA
	case OptionB:
		return r.OptionB
	default:
		return ""
	}
}

// RoundSummary is a round together with its derived pool totals
type RoundSummary struct {
	Round    *Round
	BetCount int
	PoolA    int64
	PoolB    int64
}

// TotalPool returns the sum of both option pools
func (s *RoundSummary) TotalPool() int64 {
	return s.PoolA + s.PoolB
}
