package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records per-user token revocation cutoffs in Redis.
// Key format: revoked:<user_id> -> unix milliseconds of the latest revocation.
// Keys expire after the token TTL, when every affected token has expired anyway.
type RevocationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRevocationStore creates a RevocationStore wrapping the given Redis client.
func NewRevocationStore(client *redis.Client, tokenTTL time.Duration) *RevocationStore {
	return &RevocationStore{client: client, ttl: tokenTTL}
}

// RevokeBefore invalidates tokens for userID issued strictly before at.
func (s *RevocationStore) RevokeBefore(ctx context.Context, userID int64, at time.Time) error {
	if err := s.client.Set(ctx, revocationKey(userID), at.UnixMilli(), s.ttl).Err(); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token issued at issuedAt predates the cutoff.
func (s *RevocationStore) IsRevoked(ctx context.Context, userID int64, issuedAt time.Time) (bool, error) {
	raw, err := s.client.Get(ctx, revocationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}

	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("revocation check: bad cutoff %q: %w", raw, err)
	}
	return isBefore(issuedAt, cutoff), nil
}

func isBefore(issuedAt time.Time, cutoff int64) bool {
	return issuedAt.UnixMilli() < cutoff
}

func revocationKey(userID int64) string {
	return "revoked:" + strconv.FormatInt(userID, 10)
}
