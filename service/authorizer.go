package service

import (
	"strings"

	"roundbets/models"
)

// Authorizer decides whether an actor may perform administrative operations
type Authorizer interface {
	IsAdmin(actor *models.Actor) bool
}

// EmailAllowList grants admin rights to a fixed set of email addresses
type EmailAllowList struct {
	emails map[string]struct{}
}

// NewEmailAllowList builds an allow-list, ignoring case and surrounding whitespace
func NewEmailAllowList(emails []string) *EmailAllowList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &EmailAllowList{emails: set}
}

func (a *EmailAllowList) IsAdmin(actor *models.Actor) bool {
	if actor == nil || actor.Email == "" {
		return false
	}
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(actor.Email))]
	return ok
}

// requireAdmin enforces the authentication then authorization order used by admin operations
func requireAdmin(authz Authorizer, actor *models.Actor) error {
	if actor == nil || actor.UserID == "" {
		return ErrUnauthorized
	}
	if !authz.IsAdmin(actor) {
		return ErrForbidden
	}
	return nil
}
