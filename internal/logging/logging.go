// Package logging is the structured log emitter: a slog.Handler that renders
// records either as human-readable lines (development) or as one JSON object
// per line (production), enriched with the request id bound by
// internal/requestid.
//
// The format is chosen once, from the deployment profile, when the logger is
// built; call sites only ever see a *slog.Logger.
//
//	logger := logging.New(os.Stdout, logging.Options{Format: logging.FormatJSON, Level: slog.LevelInfo})
//	log := logging.Named(logger, "apps.users")
//	log.InfoContext(ctx, "user created", slog.String("user_id", u.ID))
//	log.ErrorContext(ctx, "insert failed", logging.Exception(err))
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Top-level record fields. Caller attributes using these keys at the top
// level are dropped so they can never overwrite record metadata.
const (
	TimestampKey = "timestamp"
	LevelKey     = "level"
	LoggerKey    = "logger"
	MessageKey   = "message"
	ModuleKey    = "module"
	FunctionKey  = "function"
	LineKey      = "line"
	RequestIDKey = "request_id"
	ExceptionKey = "exception"
)

// NoRequestID is printed by the text format when no request id is bound.
const NoRequestID = "no-request-id"

// rootLogger is the logger name used when Named was never applied.
const rootLogger = "root"

// LevelCritical sits above slog.LevelError; LOG_LEVEL=CRITICAL maps to it.
const LevelCritical = slog.LevelError + 4

var reservedKeys = map[string]bool{
	TimestampKey: true,
	LevelKey:     true,
	LoggerKey:    true,
	MessageKey:   true,
	ModuleKey:    true,
	FunctionKey:  true,
	LineKey:      true,
	RequestIDKey: true,
	ExceptionKey: true,
	// slog's own built-in keys
	slog.TimeKey:    true,
	slog.MessageKey: true,
	slog.SourceKey:  true,
}

// Format selects how records are rendered.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	// FormatDiscard drops every record (test profile).
	FormatDiscard
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatDiscard:
		return "discard"
	default:
		return "text"
	}
}

// ParseFormat maps "text", "json" and "discard" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "discard", "none":
		return FormatDiscard, nil
	}
	return FormatText, fmt.Errorf("logging: unknown format %q", s)
}

// ParseLevel accepts the level names used by LOG_LEVEL.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// LevelName renders a level the way operators spell it in LOG_LEVEL.
func LevelName(l slog.Level) string {
	switch {
	case l >= LevelCritical:
		return "CRITICAL"
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARNING"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// Options configures New.
type Options struct {
	Format Format
	Level  slog.Leveler // defaults to slog.LevelInfo
}

// New builds a logger writing to w in the given format.
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.Format == FormatDiscard {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(NewHandler(w, opts))
}

// Named returns a child logger whose records carry name in the logger field.
func Named(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String(LoggerKey, name))
}
