// Command waitfordb blocks until the database in DATABASE_URL answers a
// ping, trying 30 times one second apart. It exits 1 if it never does,
// so container entrypoints can run it before migrate and server:
//
//	waitfordb && migrate && server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/base-backend/internal/cli"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/database"
	"github.com/sakif/base-backend/internal/repository/postgres"
	"github.com/sakif/base-backend/internal/repository/sqlite"
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
	target, err := database.Parse(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch target.Driver {
	case database.SQLite:
		// Nothing to wait for: opening the file is the check.
		db, err := sqlite.New(target.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		return cli.WaitForDB(ctx, db.Ping, os.Stdout, cli.DefaultWaitOptions)

	default:
		// postgres.New does not connect, so the pings below are the real test.
		db, err := postgres.New(target.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		return cli.WaitForDB(ctx, db.Ping, os.Stdout, cli.DefaultWaitOptions)
	}
}
