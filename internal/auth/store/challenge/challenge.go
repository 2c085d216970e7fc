// Package challenge stores login nonces. Every implementation removes a
// nonce before checking it, so a nonce can back at most one successful
// verification, expired or not.
package challenge

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"anchorgate/internal/auth/models"
	"anchorgate/pkg/platform/sentinel"
)

var (
	ErrChallengeNotFound = fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	ErrChallengeExpired  = fmt.Errorf("challenge expired: %w", sentinel.ErrExpired)
)

type settings struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a challenge store.
type Option func(*settings)

// WithTTL overrides the nonce lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source used for creation and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{ttl: models.DefaultChallengeTTL, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

func (s settings) newChallenge(identity *string) *models.Challenge {
	now := s.now()
	var claimed *string
	if identity != nil {
		v := *identity
		claimed = &v
	}
	return &models.Challenge{
		Nonce:     uuid.NewString(),
		Identity:  claimed,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
}

// check runs after removal: the nonce is already gone either way.
func (s settings) check(c *models.Challenge) (*models.Challenge, error) {
	if c.IsExpired(s.now()) {
		return nil, ErrChallengeExpired
	}
	return c, nil
}
