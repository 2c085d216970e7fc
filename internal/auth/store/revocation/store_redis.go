package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "revoked:token:"

// Redis is a Redis-backed revocation list shared by every instance.
// Entries expire with the token they revoke.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Revoke adds key to the list for ttl.
func (t *Redis) Revoke(ctx context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return t.client.Set(ctx, revokedTokenKeyPrefix+key, "1", ttl).Err()
}

// IsRevoked reports whether key is listed. Expired entries read as not revoked.
func (t *Redis) IsRevoked(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, revokedTokenKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
