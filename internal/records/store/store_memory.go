package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"anchorgate/internal/records/models"
	"anchorgate/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound (wrapped) when the requested record does not exist
// - Return nil for successful operations; Delete of an absent id is a no-op
// - Return wrapped errors with context for infrastructure failures

// InMemory stores records in a map for tests/dev.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*models.Record
}

// NewInMemory constructs an empty in-memory record store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*models.Record)}
}

func (s *InMemory) Put(_ context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemory) Get(_ context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[id]; ok {
		return record.Clone(), nil
	}
	return nil, fmt.Errorf("record %s not found: %w", id, sentinel.ErrNotFound)
}

// List returns all records ordered by creation time, then id.
func (s *InMemory) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	out := make([]*models.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
