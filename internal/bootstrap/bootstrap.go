// Package bootstrap builds the process-wide dependencies every command
// under cmd/ needs, in the same way: the logger (with Sentry forwarding)
// and the password hasher for the active profile.
package bootstrap

import (
	"io"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/sakif/base-backend/internal/auth"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/errorreport"
	"github.com/sakif/base-backend/internal/logging"
)

// Logger builds the root logger for cfg, writing to w, and installs it as
// slog's default. The returned hub is nil when Sentry is disabled; flush
// it with errorreport.Flush before exiting.
func Logger(cfg config.Config, w io.Writer, release string) (*slog.Logger, *sentry.Hub, error) {
	var h slog.Handler = slog.DiscardHandler
	if cfg.LogFormat != logging.FormatDiscard {
		h = logging.NewHandler(w, logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})
	}

	hub, err := errorreport.Init(errorreport.Options{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.SentryTracesSampleRate,
		Debug:            cfg.Debug,
		Release:          release,
	})
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(errorreport.Wrap(h, hub))
	slog.SetDefault(logger)
	return logger, hub, nil
}

// Passwords returns the bcrypt service for cfg's profile: minimum cost in
// the test profile, the production cost everywhere else.
func Passwords(cfg config.Config) *auth.PasswordService {
	if cfg.Profile == config.Test {
		return auth.NewFastPasswordService()
	}
	return auth.NewPasswordService()
}
