package client

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"authserver/internal/platform/database"
	"authserver/internal/platform/metrics"
	"authserver/internal/platform/tracing"
	txcontext "authserver/pkg/platform/tx"
)

// SQLStore persists client registrations in PostgreSQL or SQLite.
type SQLStore struct {
	db      *database.DB
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type Option func(*SQLStore)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SQLStore) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *SQLStore) { s.tracer = t }
}

// NewSQL constructs a SQL-backed client store.
func NewSQL(db *database.DB, opts ...Option) *SQLStore {
	s := &SQLStore{db: db, tracer: tracing.Tracer()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *SQLStore) observe(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.StartStorageSpan(ctx, s.tracer, table, operation, attrs...)
	return ctx, func(err error) {
		s.metrics.ObserveStoreOperation(table, operation, start, err)
		tracing.EndSpan(span, err)
	}
}

const upsertQuery = `
	INSERT INTO client_registration (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		client_id = excluded.client_id,
		client_id_issued_at = excluded.client_id_issued_at,
		client_secret = excluded.client_secret,
		client_secret_expires_at = excluded.client_secret_expires_at,
		client_name = excluded.client_name,
		client_authentication_methods = excluded.client_authentication_methods,
		authorization_grant_types = excluded.authorization_grant_types,
		redirect_uris = excluded.redirect_uris,
		post_logout_redirect_uris = excluded.post_logout_redirect_uris,
		scopes = excluded.scopes,
		client_settings = excluded.client_settings,
		token_settings = excluded.token_settings
`

// Upsert inserts the row or replaces the row with the same id. A client_id
// held by another row is ErrConstraintViolation.
func (s *SQLStore) Upsert(ctx context.Context, row Row) (err error) {
	ctx, done := s.observe(ctx, "upsert", attribute.String("client.id", row.ID))
	defer func() { done(err) }()

	if _, err = s.execer(ctx).ExecContext(ctx, s.db.Rebind(upsertQuery), row.args()...); err != nil {
		return database.Classify("upsert client registration", err)
	}
	return nil
}

// GetByID returns the row with the given id or ErrNotFound.
func (s *SQLStore) GetByID(ctx context.Context, id string) (row Row, err error) {
	ctx, done := s.observe(ctx, "get_by_id")
	defer func() { done(err) }()

	query := s.db.Rebind(`SELECT ` + columns + ` FROM client_registration WHERE id = $1`)
	if err = s.execer(ctx).QueryRowContext(ctx, query, id).Scan(row.dest()...); err != nil {
		return Row{}, database.Classify("get client registration by id", err)
	}
	return row, nil
}

// GetByClientID returns the row with the given client_id or ErrNotFound.
func (s *SQLStore) GetByClientID(ctx context.Context, clientID string) (row Row, err error) {
	ctx, done := s.observe(ctx, "get_by_client_id")
	defer func() { done(err) }()

	query := s.db.Rebind(`SELECT ` + columns + ` FROM client_registration WHERE client_id = $1`)
	if err = s.execer(ctx).QueryRowContext(ctx, query, clientID).Scan(row.dest()...); err != nil {
		return Row{}, database.Classify("get client registration by client_id", err)
	}
	return row, nil
}
