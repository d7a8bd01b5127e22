package models

import (
	"time"
)

// User represents a signed-in account with a credit balance
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Credits   int64     `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// HasCredits checks if the user can cover the given stake
func (u *User) HasCredits(amount int64) bool {
	return u.Credits >= amount
}
