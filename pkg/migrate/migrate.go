package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Run executes a goose command against the embedded migration set.
// Dialect is the configured database driver ("sqlite" or "postgres").
func Run(ctx context.Context, db *sql.DB, dialect string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := setDialect(dialect); err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.RunContext(ctx, command, db, migrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func setDialect(dialect string) error {
	switch dialect {
	case "sqlite":
		dialect = "sqlite3"
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
