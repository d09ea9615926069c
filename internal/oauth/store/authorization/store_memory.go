package authorization

import (
	"context"
	"fmt"
	"sync"

	"authserver/pkg/platform/sentinel"
)

// InMemory is a map-backed store that enforces the same token value
// uniqueness as the SQL schema.
type InMemory struct {
	mu     sync.RWMutex
	rows   map[string]Row
	owners map[string]string // token value -> authorization id
}

// NewInMemory returns an empty store that enforces the same token value
// uniqueness as the SQL store.
func NewInMemory() *InMemory {
	return &InMemory{
		rows:   make(map[string]Row),
		owners: make(map[string]string),
	}
}

// Upsert stores row, replacing any row with the same id.
func (s *InMemory) Upsert(_ context.Context, row Row) error {
	if err := checkDistinctTokens(&row); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := row.tokenValues()
	for _, tv := range values {
		if owner, ok := s.owners[tv.value]; ok && owner != row.ID {
			return fmt.Errorf("%s value held by another authorization: %w", tv.slot, sentinel.ErrConstraintViolation)
		}
	}

	if prev, ok := s.rows[row.ID]; ok {
		for _, tv := range prev.tokenValues() {
			delete(s.owners, tv.value)
		}
	}
	for _, tv := range values {
		s.owners[tv.value] = row.ID
	}
	s.rows[row.ID] = row
	return nil
}

// GetByID returns the row with the given id or ErrNotFound.
func (s *InMemory) GetByID(_ context.Context, id string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.rows[id]; ok {
		return row, nil
	}
	return Row{}, fmt.Errorf("authorization %q: %w", id, sentinel.ErrNotFound)
}

// GetByColumn returns up to two rows whose column equals value.
func (s *InMemory) GetByColumn(_ context.Context, column Column, value string) ([]Row, error) {
	if err := column.validate(); err != nil {
		return nil, err
	}
	return s.match([]criterion{{column: column, value: value}}), nil
}

// GetByAny returns up to two rows matching any non-empty value.
func (s *InMemory) GetByAny(_ context.Context, state, code, access, refresh string) ([]Row, error) {
	crit := criteria(state, code, access, refresh)
	if len(crit) == 0 {
		return nil, nil
	}
	return s.match(crit), nil
}

func (s *InMemory) match(crit []criterion) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Row
	for _, id := range sortedIDs(s.rows) {
		row := s.rows[id]
		for _, c := range crit {
			if c.matches(&row) {
				out = append(out, row)
				break
			}
		}
		if len(out) == maxLookupRows {
			break
		}
	}
	return out
}
