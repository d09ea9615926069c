package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	goosedb "github.com/pressly/goose/v3/database"
)

//go:embed migrations
var embedMigrations embed.FS

// Schema is an independently versioned group of tables. The client and the
// authorization groups may live in one database or in two.
type Schema string

const (
	SchemaClients        Schema = "clients"
	SchemaAuthorizations Schema = "authorizations"
)

func (s Schema) versionTable() string {
	return "goose_" + string(s) + "_version"
}

func (d Dialect) goose() goosedb.Dialect {
	if d == DialectSQLite {
		return goosedb.DialectSQLite3
	}
	return goosedb.DialectPostgres
}

// Migrate applies all pending migrations of the given schema groups. Each
// group keeps its own goose version table.
func Migrate(ctx context.Context, db *DB, schemas ...Schema) error {
	for _, schema := range schemas {
		migrationFS, err := fs.Sub(embedMigrations, path.Join("migrations", string(db.Dialect), string(schema)))
		if err != nil {
			return fmt.Errorf("failed to create sub filesystem for %s: %w", schema, err)
		}

		store, err := goosedb.NewStore(db.Dialect.goose(), schema.versionTable())
		if err != nil {
			return fmt.Errorf("failed to create goose store for %s: %w", schema, err)
		}

		provider, err := goose.NewProvider("", db.DB, migrationFS, goose.WithStore(store))
		if err != nil {
			return fmt.Errorf("failed to create goose provider for %s: %w", schema, err)
		}

		if _, err := provider.Up(ctx); err != nil {
			return fmt.Errorf("failed to apply %s migrations: %w", schema, err)
		}
	}
	return nil
}
