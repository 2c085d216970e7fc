package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"anchorgate/internal/auth/models"
)

const (
	challengeKeyPrefix = "challenge:nonce:"

	// keyGrace keeps an expired challenge around briefly so a late
	// redemption reports ErrChallengeExpired instead of ErrChallengeNotFound.
	keyGrace = 30 * time.Second
)

// Redis stores challenges in Redis so several instances share nonces.
// Key expiry replaces the in-memory sweep and GETDEL makes consumption
// atomic across instances.
type Redis struct {
	settings
	client *redis.Client
}

func NewRedis(client *redis.Client, opts ...Option) *Redis {
	return &Redis{settings: newSettings(opts), client: client}
}

func (s *Redis) Create(ctx context.Context, identity *string) (*models.Challenge, error) {
	c := s.newChallenge(identity)
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode challenge: %w", err)
	}
	if err := s.client.Set(ctx, challengeKeyPrefix+c.Nonce, payload, s.ttl+keyGrace).Err(); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	return c, nil
}

func (s *Redis) VerifyAndConsume(ctx context.Context, nonce string) (*models.Challenge, error) {
	payload, err := s.client.GetDel(ctx, challengeKeyPrefix+nonce).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	var c models.Challenge
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return s.check(&c)
}
