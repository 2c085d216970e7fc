package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemory is a process-local revocation list.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

type Option func(*InMemory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *InMemory) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{entries: make(map[string]time.Time), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Revoke(_ context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, until := range s.entries {
		if !now.Before(until) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = now.Add(ttl)
	return nil
}

func (s *InMemory) IsRevoked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}
