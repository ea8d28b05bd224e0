// Package main is the entry point for the API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars and an optional .env file)
// 2. Create dependencies (logger, database connection, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// This project has four: cmd/server, cmd/migrate, cmd/createsuperuser and
// cmd/waitfordb. Each gets its own directory with its own main.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/base-backend/internal/bootstrap"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/database"
	"github.com/sakif/base-backend/internal/errorreport"
	"github.com/sakif/base-backend/internal/server"
)

// version is set at build time: -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	if err := run(); err != nil {
		// The logger may not exist yet (bad config), so plain stderr.
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. READ CONFIGURATION ===
	// A missing production setting (SECRET_KEY, ALLOWED_HOSTS, DATABASE_URL)
	// stops the process here, before anything listens.
	cfg, err := config.FromOS()
	if err != nil {
		return err
	}

	// === 2. SET UP LOGGING ===
	// Text at DEBUG in development, JSON at LOG_LEVEL in production,
	// discarded in tests. ERROR records also go to Sentry when configured.
	logger, hub, err := bootstrap.Logger(cfg, os.Stdout, version)
	if err != nil {
		return err
	}
	defer errorreport.Flush(hub, 2*time.Second)

	// === 3. OPEN THE DATABASE ===
	ctx := context.Background()
	store, err := database.Open(ctx, cfg.DatabaseURL, database.Options{
		AutoMigrate: cfg.AutoMigrate,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		return err
	}
	// Closed after Start returns, i.e. after in-flight requests drained.
	defer store.Close()
	logger.Info("database opened", slog.String("database", database.Redact(cfg.DatabaseURL)))

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, store, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
