package session

import (
	"context"
	"fmt"

	"roundbets/models"
	"roundbets/service"
)

// SignIn resolves an identity to a user, granting starting credits on first
// sight, and issues a session token for it
func (s *Store) SignIn(ctx context.Context, users service.UserService, identity models.Identity) (string, *models.User, error) {
	user, err := users.GetOrCreateUser(ctx, identity)
	if err != nil {
		return "", nil, err
	}

	token, err := s.Create(ctx, &models.Actor{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign in %s: %w", user.Email, err)
	}
	return token, user, nil
}
