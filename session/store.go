package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no refresh session exists for the user.
var ErrNotFound = errors.New("refresh session not found")

// ErrUnavailable wraps connectivity failures. Callers must surface it as an
// internal error, never as a token-validity answer.
var ErrUnavailable = errors.New("redis unavailable")

const (
	refreshKeyPrefix  = "refresh:"
	denylistKeyPrefix = "blacklist:"
	denylistMarker    = "1"
)

// Store defines a public type used by vaultauth APIs.
//
// Store instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore creates a Store on top of client. prefix, when non-empty, is
// prepended to every key so multiple deployments can share one Redis.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) refreshKey(userID string) string {
	return s.prefix + refreshKeyPrefix + userID
}

func (s *Store) denyKey(token string) string {
	return s.prefix + denylistKeyPrefix + token
}

// SaveRefresh records token as the single live refresh session for userID,
// overwriting any prior value. The overwrite is what enforces one active
// session per user: an earlier refresh token becomes unusable even if it was
// never presented.
func (s *Store) SaveRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.refreshKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetRefresh returns the stored refresh token for userID, or [ErrNotFound]
// when no session exists.
func (s *Store) GetRefresh(ctx context.Context, userID string) (string, error) {
	val, err := s.client.Get(ctx, s.refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

// DeleteRefresh removes the refresh session for userID. Deleting an absent
// session is not an error.
func (s *Store) DeleteRefresh(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Denylist marks an access token as revoked for ttl, which callers set to
// the token's remaining lifetime so the entry expires with the token.
func (s *Store) Denylist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.denyKey(token), denylistMarker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsDenylisted reports whether token has been revoked.
func (s *Store) IsDenylisted(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.denyKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
