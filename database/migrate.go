// Package database embeds the schema migrations and applies them with goose.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Migrate applies the postgres migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return MigrateDB(ctx, db, DialectPostgres)
}

// MigrateDB applies the migrations for dialect over an open handle.
func MigrateDB(ctx context.Context, db *sql.DB, dialect string) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	dir, err := migrationDir(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func migrationDir(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "migrations/postgres", nil
	case DialectSQLite:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}
