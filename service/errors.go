package service

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a domain failure that callers can branch on
type ErrorKind string

const (
	KindUnauthorized               ErrorKind = "unauthorized"
	KindForbidden                  ErrorKind = "forbidden"
	KindMissingField               ErrorKind = "missing_field"
	KindInvalidAmount              ErrorKind = "invalid_amount"
	KindInvalidOption              ErrorKind = "invalid_option"
	KindRoundNotFound              ErrorKind = "round_not_found"
	KindUserNotFound               ErrorKind = "user_not_found"
	KindRoundNotBettable           ErrorKind = "round_not_bettable"
	KindDuplicateBet               ErrorKind = "duplicate_bet"
	KindInsufficientCredits        ErrorKind = "insufficient_credits"
	KindInvalidLifecycleTransition ErrorKind = "invalid_lifecycle_transition"
	KindRoundNotActive             ErrorKind = "round_not_active"
	KindInternal                   ErrorKind = "internal"
)

// ErrorCategory groups kinds for transport-level mapping
type ErrorCategory int

const (
	CategoryInternal ErrorCategory = iota
	CategoryValidation
	CategoryConflict
	CategoryNotFound
	CategoryUnauthenticated
	CategoryForbidden
)

// Category returns the category the kind belongs to
func (k ErrorKind) Category() ErrorCategory {
	switch k {
	case KindUnauthorized:
		return CategoryUnauthenticated
	case KindForbidden:
		return CategoryForbidden
	case KindMissingField, KindInvalidAmount, KindInvalidOption:
		return CategoryValidation
	case KindRoundNotFound, KindUserNotFound:
		return CategoryNotFound
	case KindRoundNotBettable, KindDuplicateBet, KindInsufficientCredits,
		KindInvalidLifecycleTransition, KindRoundNotActive:
		return CategoryConflict
	default:
		return CategoryInternal
	}
}

// Error is a domain error carrying a kind and a client-safe message
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind so sentinels compare by kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUnauthorized               = &Error{Kind: KindUnauthorized, Message: "authentication required"}
	ErrForbidden                  = &Error{Kind: KindForbidden, Message: "admin access required"}
	ErrMissingField               = &Error{Kind: KindMissingField, Message: "missing required field"}
	ErrInvalidAmount              = &Error{Kind: KindInvalidAmount, Message: "amount must be a positive integer"}
	ErrInvalidOption              = &Error{Kind: KindInvalidOption, Message: "option must be A or B"}
	ErrRoundNotFound              = &Error{Kind: KindRoundNotFound, Message: "round not found"}
	ErrUserNotFound               = &Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrRoundNotBettable           = &Error{Kind: KindRoundNotBettable, Message: "round not found or not accepting bets"}
	ErrDuplicateBet               = &Error{Kind: KindDuplicateBet, Message: "you have already bet on this round"}
	ErrInsufficientCredits        = &Error{Kind: KindInsufficientCredits, Message: "insufficient credits"}
	ErrInvalidLifecycleTransition = &Error{Kind: KindInvalidLifecycleTransition, Message: "round is no longer open"}
	ErrRoundNotActive             = &Error{Kind: KindRoundNotActive, Message: "round is not active"}
)

// Storage-level sentinels returned by repositories and translated by services
var (
	// ErrBetExists is returned when the one-bet-per-round constraint rejects an insert
	ErrBetExists = errors.New("bet already exists for user and round")
	// ErrCreditsTooLow is returned when a guarded debit matches no row
	ErrCreditsTooLow = errors.New("credits below requested amount")
	// ErrRoundAlreadySettled is returned when a guarded settle matches no open round
	ErrRoundAlreadySettled = errors.New("round already settled")
)

// KindOf returns the domain kind of err, or KindInternal for anything else
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
