// Package database opens the relational stores backing the registry and the
// authorization store, applies their migrations and classifies driver errors
// into the sentinel taxonomy.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver is a database/sql driver name accepted by Open.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverPGX      Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

// Dialect selects SQL syntax and migration sets. Both PostgreSQL drivers
// share one dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Driver) Dialect() (Dialect, error) {
	switch d {
	case DriverPostgres, DriverPGX:
		return DialectPostgres, nil
	case DriverSQLite:
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", d)
}

// Config describes one datasource.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB is a *sql.DB that knows its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the datasource and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	dialect, err := cfg.Driver.Dialect()
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if dialect == DialectSQLite && !isSQLiteMemory(dsn) {
		dsn = sqliteFileDSN(dsn)
	}

	sqlDB, err := sql.Open(string(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	// Every connection to an in-memory SQLite database is a separate database.
	if dialect == DialectSQLite && isSQLiteMemory(cfg.DSN) {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", cfg.Driver, err)
	}

	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// sqliteFileParams make writers on a shared file wait for the lock instead of
// failing with SQLITE_BUSY. Transactions take the write lock at BEGIN so two
// deferred transactions cannot deadlock on upgrade.
var sqliteFileParams = []struct{ key, value string }{
	{"busy_timeout", "_pragma=busy_timeout(5000)"},
	{"journal_mode", "_pragma=journal_mode(WAL)"},
	{"_txlock", "_txlock=immediate"},
}

// sqliteFileDSN appends the file parameters the DSN does not already set.
func sqliteFileDSN(dsn string) string {
	for _, p := range sqliteFileParams {
		if strings.Contains(dsn, p.key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p.value
	}
	return dsn
}

func isSQLiteMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Rebind rewrites $n placeholders into the dialect's positional syntax.
// Queries are written once in PostgreSQL style.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectSQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// Health pings the database.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
