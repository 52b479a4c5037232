package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abefas/GoTodo/config"
	"github.com/charmbracelet/log"
)

// schema holds the statements that create the todos table for each driver.
// The UNIQUE constraint on title makes concurrent duplicate creates fail in
// the store instead of slipping past the application-level check.
var schema = map[string][]string{
	config.DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS todos (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT todos_title_key UNIQUE (title)
		);`,
	},
	config.DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE,
			is_completed BOOLEAN NOT NULL DEFAULT 0
		);`,
	},
}

// Migrate applies the schema for driver. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger *log.Logger) error {
	statements, ok := schema[driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driver)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	logger.Info("schema is up to date", "driver", driver, "statements", len(statements))
	return nil
}
