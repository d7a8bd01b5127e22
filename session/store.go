package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"roundbets/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// CookieName is the cookie the web client carries the session token in
const CookieName = "session_token"

// Store keeps session tokens in redis, each mapped to the actor that signed in
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

// NewStore creates a session store backed by the given redis client
func NewStore(r *redis.Client, ttl time.Duration) *Store {
	return &Store{R: r, TTL: ttl}
}

// Connect dials redis and verifies the connection
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func keySession(token string) string { return "session:" + token }

// Create issues a new session token for the actor
func (s *Store) Create(ctx context.Context, actor *models.Actor) (string, error) {
	if actor == nil || actor.UserID == "" {
		return "", errors.New("session requires a signed-in user")
	}

	b, err := json.Marshal(actor)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "") + strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := s.R.Set(ctx, keySession(token), b, s.TTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id": actor.UserID,
		"ttl":     s.TTL.String(),
	}).Debug("Session created")

	return token, nil
}

// Resolve returns the actor for a token, or nil when the token is unknown or expired
func (s *Store) Resolve(ctx context.Context, token string) (*models.Actor, error) {
	if token == "" {
		return nil, nil
	}

	b, err := s.R.Get(ctx, keySession(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var actor models.Actor
	if err := json.Unmarshal(b, &actor); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &actor, nil
}

// Delete revokes a session token
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.R.Del(ctx, keySession(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping reports whether redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.R.Ping(ctx).Err()
}
