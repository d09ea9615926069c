// Package authorization maps authorization sessions onto
// authorization_session rows and resolves sessions by state or token value.
package authorization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authserver/internal/oauth/models"
	authstore "authserver/internal/oauth/store/authorization"
	"authserver/internal/platform/metrics"
	"authserver/pkg/platform/sentinel"
)

const storeName = "authorization_session"

// RowStore is the relational store the mapper writes through. Multi-row
// lookups return at most two rows.
type RowStore interface {
	Upsert(ctx context.Context, row authstore.Row) error
	GetByID(ctx context.Context, id string) (authstore.Row, error)
	GetByColumn(ctx context.Context, column authstore.Column, value string) ([]authstore.Row, error)
	GetByAny(ctx context.Context, state, code, access, refresh string) ([]authstore.Row, error)
}

// Store saves and resolves authorization sessions. It holds no state between
// calls and never caches.
type Store struct {
	rows    RowStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New constructs a Store over rows.
func New(rows RowStore, opts ...Option) *Store {
	s := &Store{rows: rows, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save inserts or replaces the session with a.ID. Slots absent from a.Tokens
// are cleared. A token value held by another session fails with
// ErrConstraintViolation and nothing is written.
func (s *Store) Save(ctx context.Context, a *models.AuthorizationSession) error {
	row, err := toRow(a)
	if err != nil {
		return fmt.Errorf("save authorization: %w", err)
	}
	if err := s.rows.Upsert(ctx, row); err != nil {
		return fmt.Errorf("save authorization %s: %w", a.ID, err)
	}
	return nil
}

// FindByID returns the session with the given id, or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id string) (*models.AuthorizationSession, error) {
	row, err := s.rows.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find authorization by id: %w", err)
	}
	return s.load(ctx, row)
}

// FindByToken returns the session whose kind column equals value. An empty
// value matches nothing.
func (s *Store) FindByToken(ctx context.Context, kind LookupKind, value string) (*models.AuthorizationSession, error) {
	column, err := kind.column()
	if err != nil {
		return nil, fmt.Errorf("find authorization by token: %w", err)
	}
	if value == "" {
		return nil, fmt.Errorf("find authorization by %s: empty value: %w", kind, sentinel.ErrNotFound)
	}

	rows, err := s.rows.GetByColumn(ctx, column, value)
	if err != nil {
		return nil, fmt.Errorf("find authorization by %s: %w", kind, err)
	}
	return s.resolve(ctx, rows, []string{string(kind)})
}

// FindByAny returns the session matching any supplied value. Values that
// point at different sessions are reported as ErrConsistencyViolation rather
// than resolved in favour of one of them.
func (s *Store) FindByAny(ctx context.Context, l Lookup) (*models.AuthorizationSession, error) {
	if l.IsEmpty() {
		return nil, fmt.Errorf("find authorization: no lookup value: %w", sentinel.ErrNotFound)
	}
	rows, err := s.rows.GetByAny(ctx, l.State, l.AuthorizationCode, l.AccessToken, l.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("find authorization by any: %w", err)
	}
	return s.resolve(ctx, rows, l.kinds())
}

func (s *Store) resolve(ctx context.Context, rows []authstore.Row, kinds []string) (*models.AuthorizationSession, error) {
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("find authorization by %v: %w", kinds, sentinel.ErrNotFound)
	case 1:
		return s.load(ctx, rows[0])
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	s.metrics.IncrementConsistencyViolation()
	s.logger.ErrorContext(ctx, "lookup matched more than one authorization",
		"kinds", kinds,
		"authorization_ids", ids,
	)
	return nil, fmt.Errorf("lookup by %v matched authorizations %v: %w", kinds, ids, sentinel.ErrConsistencyViolation)
}

func (s *Store) load(ctx context.Context, row authstore.Row) (*models.AuthorizationSession, error) {
	a, err := fromRow(row)
	if err != nil {
		if errors.Is(err, sentinel.ErrCorruptData) {
			s.metrics.IncrementCorruptRecord(storeName)
			s.logger.ErrorContext(ctx, "authorization has unreadable data",
				"id", row.ID,
				"registered_client_id", row.RegisteredClientID,
				"error", err,
			)
		}
		return nil, fmt.Errorf("load authorization %s: %w", row.ID, err)
	}
	return a, nil
}
