package main

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/recite-app/recite-api/internal/config"
)

// migrationsDir is where the goose SQL migrations live, relative to the
// working directory the server is started from.
const migrationsDir = "migrations"

// runMigrations executes the given goose command against the configured
// database and returns once the command completes.
func runMigrations(cfg *config.Config, command string) error {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	switch command {
	case "up":
		err = goose.Up(db, migrationsDir)
	case "down":
		err = goose.Down(db, migrationsDir)
	case "status":
		err = goose.Status(db, migrationsDir)
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}
	if err != nil {
		return fmt.Errorf("migration %q failed: %w", command, err)
	}
	return nil
}
