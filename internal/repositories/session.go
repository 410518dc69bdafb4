package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/musicon/internal/logger"
)

// SessionRepository keeps revoked session token ids in Redis until the
// tokens would have expired anyway.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new repository instance
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(jti string) string {
	return fmt.Sprintf("revoked_session:%s", jti)
}

// Revoke marks the token jti as logged out until expiresAt.
func (r *SessionRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := sessionKey(jti)
	err := r.client.Set(ctx, key, "1", ttl).Err()

	logger.Log.Infow("session revoked",
		"key", key,
		"ttl", ttl,
		"error", err,
	)

	return err
}

// IsRevoked reports whether the token jti was logged out.
func (r *SessionRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	key := sessionKey(jti)
	n, err := r.client.Exists(ctx, key).Result()

	logger.Log.Infow("session lookup",
		"key", key,
		"result", n,
		"error", err,
	)

	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}
