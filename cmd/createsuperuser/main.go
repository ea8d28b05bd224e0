// Command createsuperuser creates a staff account with every permission.
//
//	createsuperuser                              # prompts for everything
//	createsuperuser --email admin@example.com    # prompts for the rest
//	SUPERUSER_PASSWORD=... createsuperuser --no-input --email admin@example.com
//
// It uses the same DATABASE_URL and profile settings as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sakif/base-backend/internal/bootstrap"
	"github.com/sakif/base-backend/internal/cli"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/database"
	"github.com/sakif/base-backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrAborted) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func run() error {
	var opts cli.SuperuserOptions
	flag.StringVar(&opts.Email, "email", "", "email address of the superuser")
	flag.StringVar(&opts.Username, "username", "", "username (generated from the email when empty)")
	flag.StringVar(&opts.FullName, "full-name", "", "full name")
	flag.BoolVar(&opts.NoInput, "no-input", false, "do not prompt; read the password from SUPERUSER_PASSWORD")
	flag.Parse()
	opts.Password = os.Getenv("SUPERUSER_PASSWORD")

	cfg, err := config.FromOS()
	if err != nil {
		return err
	}
	logger, _, err := bootstrap.Logger(cfg, os.Stderr, "")
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := database.Open(ctx, cfg.DatabaseURL, database.Options{AutoMigrate: cfg.AutoMigrate, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	users := service.NewUserService(store, bootstrap.Passwords(cfg), logger)
	_, err = cli.CreateSuperuser(ctx, users, cli.NewPrompter(os.Stdin, os.Stdout), opts)
	return err
}
