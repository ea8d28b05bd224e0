// Package errorreport forwards ERROR and CRITICAL log records to Sentry.
//
// Nothing in the application talks to Sentry directly. Code logs failures
// the usual way:
//
//	logger.ErrorContext(ctx, "failed to create user", logging.Exception(err))
//
// and the slog handler returned by Wrap turns that record into a Sentry
// event tagged with the request id and logger name. When SENTRY_DSN is
// empty, or DEBUG is on, Init returns a nil hub and Wrap is the identity.
//
// No personal data is sent: SendDefaultPII stays false and the record's
// extra attributes (which may hold emails or usernames) are not attached.
package errorreport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sakif/base-backend/internal/logging"
	"github.com/sakif/base-backend/internal/requestid"
)

// Options configures Init.
type Options struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
	Release          string
}

// Enabled reports whether Init would configure a client.
func (o Options) Enabled() bool {
	return o.DSN != "" && !o.Debug
}

// Init configures the global Sentry client and returns its hub, or nil
// when reporting is disabled.
func Init(opts Options) (*sentry.Hub, error) {
	if !opts.Enabled() {
		return nil, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		TracesSampleRate: opts.TracesSampleRate,
		SendDefaultPII:   false,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("errorreport: initializing sentry: %w", err)
	}
	return sentry.CurrentHub(), nil
}

// Flush waits up to timeout for buffered events to be delivered.
// Safe to call with a nil hub.
func Flush(hub *sentry.Hub, timeout time.Duration) {
	if hub != nil {
		hub.Flush(timeout)
	}
}

// Wrap returns a handler that passes every record to next and additionally
// reports ERROR+ records to hub. With a nil hub it returns next unchanged.
func Wrap(next slog.Handler, hub *sentry.Hub) slog.Handler {
	if hub == nil {
		return next
	}
	return &Handler{next: next, hub: hub}
}

// Handler is the slog.Handler built by Wrap.
type Handler struct {
	next    slog.Handler
	hub     *sentry.Hub
	logger  string // name bound with logging.Named
	grouped bool   // attrs after WithGroup are nested, never the logger name
}

// Enabled is true for anything next wants, and for every ERROR+ record even
// when next would drop it (the test profile logs nothing below WARNING to
// stdout, but errors still matter).
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelError || h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}
	if r.Level >= slog.LevelError {
		h.report(ctx, r)
	}
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	if !h.grouped {
		for _, a := range attrs {
			if a.Key == logging.LoggerKey {
				c.logger = a.Value.String()
			}
		}
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	if name != "" {
		c.grouped = true
	}
	return &c
}

func (h *Handler) report(ctx context.Context, r slog.Record) {
	var cause error
	r.Attrs(func(a slog.Attr) bool {
		if err, ok := logging.ExceptionError(a); ok {
			cause = err
			return false
		}
		return true
	})

	level := sentry.LevelError
	if r.Level >= logging.LevelCritical {
		level = sentry.LevelFatal
	}

	h.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTag("logger", nameOrRoot(h.logger))
		if id, ok := requestid.FromContext(ctx); ok {
			scope.SetTag("request_id", id)
		}
		scope.SetContext("log", sentry.Context{
			"message": r.Message,
			"level":   logging.LevelName(r.Level),
		})

		if cause != nil {
			h.hub.CaptureException(cause)
			return
		}
		h.hub.CaptureMessage(r.Message)
	})
}

func nameOrRoot(name string) string {
	if name == "" {
		return "root"
	}
	return name
}
