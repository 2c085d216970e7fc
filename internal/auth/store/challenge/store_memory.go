package challenge

import (
	"context"
	"sync"

	"anchorgate/internal/auth/models"
)

// InMemory keeps challenges in a map for single-instance deployments and
// tests. Expired entries are swept on every Create.
type InMemory struct {
	settings
	mu         sync.Mutex
	challenges map[string]*models.Challenge
}

func NewInMemory(opts ...Option) *InMemory {
	return &InMemory{
		settings:   newSettings(opts),
		challenges: make(map[string]*models.Challenge),
	}
}

func (s *InMemory) Create(_ context.Context, identity *string) (*models.Challenge, error) {
	c := s.newChallenge(identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, existing := range s.challenges {
		// Sweep keeps only entries strictly before their expiry.
		if !c.CreatedAt.Before(existing.ExpiresAt) {
			delete(s.challenges, nonce)
		}
	}
	stored := *c
	s.challenges[c.Nonce] = &stored
	return c, nil
}

func (s *InMemory) VerifyAndConsume(_ context.Context, nonce string) (*models.Challenge, error) {
	s.mu.Lock()
	c, ok := s.challenges[nonce]
	delete(s.challenges, nonce)
	s.mu.Unlock()

	if !ok {
		return nil, ErrChallengeNotFound
	}
	return s.check(c)
}

// Len returns the number of stored, possibly expired, challenges.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}
