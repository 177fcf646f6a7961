package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "session:revoked:"

// SessionStore remembers signed-out token ids until they would have expired anyway.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a Redis-backed session revocation store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Revoke marks the token id as signed out until expiresAt.
func (s *SessionStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id was signed out.
func (s *SessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, revokedPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return true, nil
}
