// Command migrate applies the embedded schema migrations to DATABASE_URL.
//
// Production runs it explicitly (AUTO_MIGRATE defaults to false there);
// development and tests migrate on startup. SQLite stores create their
// schema when opened, so for them this only verifies the database opens.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/base-backend/internal/bootstrap"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromOS()
	if err != nil {
		return err
	}
	logger, _, err := bootstrap.Logger(cfg, os.Stdout, "")
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := database.Open(ctx, cfg.DatabaseURL, database.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	if m, ok := store.(database.Migrator); ok {
		if err := m.Migrate(ctx, logger); err != nil {
			return err
		}
	}
	logger.Info("migrations applied", slog.String("database", database.Redact(cfg.DatabaseURL)))
	return nil
}
