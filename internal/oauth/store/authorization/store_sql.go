package authorization

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"authserver/internal/platform/database"
	"authserver/internal/platform/metrics"
	"authserver/internal/platform/tracing"
	txcontext "authserver/pkg/platform/tx"
)

// SQLStore persists authorization sessions in PostgreSQL or SQLite.
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

// NewSQL constructs a SQL-backed authorization store.
func NewSQL(db *database.DB, opts ...Option) *SQLStore {
	s := &SQLStore{db: db, tracer: tracing.Tracer()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
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

var upsertQuery = func() string {
	placeholders := make([]string, len(columnNames))
	updates := make([]string, 0, len(columnNames)-1)
	for i, name := range columnNames {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if name != "id" {
			updates = append(updates, name+" = excluded."+name)
		}
	}
	return "INSERT INTO authorization_session (" + columns + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") ON CONFLICT (id) DO UPDATE SET " +
		strings.Join(updates, ", ")
}()

func hashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Upsert inserts the row or replaces the row with the same id. The token
// value index is rewritten in the same transaction, so a token value held by
// another session fails the whole write with ErrConstraintViolation. When ctx
// carries a transaction the write joins it.
func (s *SQLStore) Upsert(ctx context.Context, row Row) (err error) {
	ctx, done := s.observe(ctx, "upsert", attribute.String("authorization.id", row.ID))
	defer func() { done(err) }()

	if err = checkDistinctTokens(&row); err != nil {
		return err
	}

	err = txcontext.Run(ctx, s.db.DB, func(ctx context.Context, tx *sql.Tx) error {
		// The session row is written first: its row lock orders concurrent
		// writers of one id, so the index rewrite below sees the previous
		// writer's committed claims.
		if _, err := tx.ExecContext(ctx, s.db.Rebind(upsertQuery), row.args()...); err != nil {
			return database.Classify("upsert authorization session", err)
		}

		if _, err := tx.ExecContext(ctx,
			s.db.Rebind(`DELETE FROM authorization_token_value WHERE authorization_id = $1`), row.ID); err != nil {
			return database.Classify("release token values", err)
		}

		insertValue := s.db.Rebind(`INSERT INTO authorization_token_value (value_hash, authorization_id, token_kind) VALUES ($1, $2, $3)`)
		for _, tv := range row.tokenValues() {
			if _, err := tx.ExecContext(ctx, insertValue, hashToken(tv.value), row.ID, tv.slot); err != nil {
				return database.Classify("claim "+tv.slot+" value", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save authorization %s: %w", row.ID, err)
	}
	return nil
}

// GetByID returns the row with the given id or ErrNotFound.
func (s *SQLStore) GetByID(ctx context.Context, id string) (row Row, err error) {
	ctx, done := s.observe(ctx, "get_by_id")
	defer func() { done(err) }()

	query := s.db.Rebind(`SELECT ` + columns + ` FROM authorization_session WHERE id = $1`)
	if err = s.execer(ctx).QueryRowContext(ctx, query, id).Scan(row.dest()...); err != nil {
		return Row{}, database.Classify("get authorization session by id", err)
	}
	return row, nil
}

// GetByColumn returns up to two rows whose column equals value. An empty
// result is not an error.
func (s *SQLStore) GetByColumn(ctx context.Context, column Column, value string) (rows []Row, err error) {
	ctx, done := s.observe(ctx, "get_by_"+string(column))
	defer func() { done(err) }()

	if err = column.validate(); err != nil {
		return nil, err
	}
	return s.query(ctx, []criterion{{column: column, value: value}})
}

// GetByAny returns up to two rows matching any of the non-empty values.
// Supplying no value yields no rows.
func (s *SQLStore) GetByAny(ctx context.Context, state, code, access, refresh string) (rows []Row, err error) {
	ctx, done := s.observe(ctx, "get_by_any")
	defer func() { done(err) }()

	crit := criteria(state, code, access, refresh)
	if len(crit) == 0 {
		return nil, nil
	}
	return s.query(ctx, crit)
}

func (s *SQLStore) query(ctx context.Context, crit []criterion) ([]Row, error) {
	conds := make([]string, len(crit))
	args := make([]any, len(crit))
	for i, c := range crit {
		conds[i] = fmt.Sprintf("%s = $%d", c.column, i+1)
		args[i] = c.value
	}
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s FROM authorization_session WHERE %s ORDER BY id LIMIT %d`,
		columns, strings.Join(conds, " OR "), maxLookupRows))

	rs, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.Classify("query authorization sessions", err)
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		var row Row
		if err := rs.Scan(row.dest()...); err != nil {
			return nil, database.Classify("scan authorization session", err)
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, database.Classify("iterate authorization sessions", err)
	}
	return out, nil
}
