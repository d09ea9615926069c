package client

import (
	"context"
	"fmt"
	"sync"

	"authserver/pkg/platform/sentinel"
)

// InMemory is a map-backed store that enforces the same unique indexes as
// the SQL schema.
type InMemory struct {
	mu         sync.RWMutex
	rows       map[string]Row
	byClientID map[string]string
}

// NewInMemory returns an empty store that enforces client_id uniqueness.
func NewInMemory() *InMemory {
	return &InMemory{
		rows:       make(map[string]Row),
		byClientID: make(map[string]string),
	}
}

// Upsert stores row, replacing any row with the same id.
func (s *InMemory) Upsert(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byClientID[row.ClientID]; ok && owner != row.ID {
		return fmt.Errorf("client_id %q already registered: %w", row.ClientID, sentinel.ErrConstraintViolation)
	}
	if prev, ok := s.rows[row.ID]; ok {
		delete(s.byClientID, prev.ClientID)
	}
	s.rows[row.ID] = row
	s.byClientID[row.ClientID] = row.ID
	return nil
}

// GetByID returns the row with the given id or ErrNotFound.
func (s *InMemory) GetByID(_ context.Context, id string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.rows[id]; ok {
		return row, nil
	}
	return Row{}, fmt.Errorf("client registration %q: %w", id, sentinel.ErrNotFound)
}

// GetByClientID returns the row with the given client_id or ErrNotFound.
func (s *InMemory) GetByClientID(_ context.Context, clientID string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byClientID[clientID]; ok {
		return s.rows[id], nil
	}
	return Row{}, fmt.Errorf("client registration with client_id %q: %w", clientID, sentinel.ErrNotFound)
}
