// Package config loads process configuration from the environment.
//
// PROFILES:
// The deployment profile is picked by APP_ENV: "development" (the default),
// "production" or "test". Each profile starts from its own defaults and then
// lets environment variables override them. Production has no defaults for the
// settings that must never be guessed (SECRET_KEY, ALLOWED_HOSTS,
// DATABASE_URL); a missing one is a ConfigurationError and the process refuses
// to start.
//
// SOURCES, IN ORDER OF PRECEDENCE:
//  1. The real process environment
//  2. A .env file (DOTENV_PATH, default ".env"), skipped in the test profile
//  3. The profile defaults below
//
// Parsing is done by github.com/caarlos0/env over a struct that is pre-filled
// with the profile defaults: variables that are absent leave the default alone.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/logging"
)

// Profile is a deployment profile.
type Profile string

const (
	Development Profile = "development"
	Production  Profile = "production"
	Test        Profile = "test"
)

func parseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case "", "dev":
		return Development, nil
	case Development, Production, Test:
		return p, nil
	case "prod":
		return Production, nil
	}
	return "", apperror.Configuration("APP_ENV", fmt.Sprintf("unknown profile %q (want development, production or test)", s))
}

// Config is the fully resolved configuration. It is built once at startup and
// passed by value; nothing reads the environment after Load returns.
type Config struct {
	Profile Profile
	Debug   bool

	SecretKey    string
	AllowedHosts []string
	DatabaseURL  string
	AutoMigrate  bool

	CORSAllowedOrigins []string
	CSRFTrustedOrigins []string

	LogLevel  slog.Level
	LogFormat logging.Format

	SentryDSN              string
	SentryTracesSampleRate float64
	Environment            string

	Port              int
	SecureSSLRedirect bool
	SecureHSTSSeconds int
	StaticRoot        string
	ShutdownTimeout   time.Duration
}

// rawEnv mirrors Config with the textual forms env understands directly.
type rawEnv struct {
	Debug                  bool          `env:"DEBUG"`
	SecretKey              string        `env:"SECRET_KEY"`
	AllowedHosts           []string      `env:"ALLOWED_HOSTS" envSeparator:","`
	DatabaseURL            string        `env:"DATABASE_URL"`
	AutoMigrate            bool          `env:"AUTO_MIGRATE"`
	CORSAllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CSRFTrustedOrigins     []string      `env:"CSRF_TRUSTED_ORIGINS" envSeparator:","`
	LogLevel               string        `env:"LOG_LEVEL"`
	LogFormat              string        `env:"LOG_FORMAT"`
	SentryDSN              string        `env:"SENTRY_DSN"`
	SentryTracesSampleRate float64       `env:"SENTRY_TRACES_SAMPLE_RATE"`
	Environment            string        `env:"ENVIRONMENT"`
	Port                   int           `env:"PORT"`
	SecureSSLRedirect      bool          `env:"SECURE_SSL_REDIRECT"`
	SecureHSTSSeconds      int           `env:"SECURE_HSTS_SECONDS"`
	StaticRoot             string        `env:"STATIC_ROOT"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// Origins that are always trusted for cross-origin writes in development,
// appended after whatever CSRF_TRUSTED_ORIGINS lists.
var devCSRFOrigins = []string{
	"http://localhost",
	"http://localhost:80",
	"http://localhost:3000",
	"http://127.0.0.1",
	"http://127.0.0.1:80",
	"http://127.0.0.1:3000",
}

// === PROFILE DEFAULTS ===

func defaults(p Profile) rawEnv {
	common := rawEnv{
		SentryTracesSampleRate: 0.1,
		Environment:            "production",
		Port:                   8000,
		SecureHSTSSeconds:      31536000,
		StaticRoot:             "staticfiles",
		ShutdownTimeout:        30 * time.Second,
	}

	switch p {
	case Production:
		common.LogLevel = "INFO"
		common.LogFormat = "json"
		common.SecureSSLRedirect = true
	case Test:
		common.SecretKey = "test-secret-key-for-tests"
		common.AllowedHosts = []string{"*"}
		common.DatabaseURL = "sqlite://:memory:"
		common.AutoMigrate = true
		common.LogLevel = "WARNING"
		common.LogFormat = "discard"
		common.Environment = "test"
	default:
		common.Debug = true
		common.SecretKey = "insecure-dev-key-change-me-in-production"
		common.AllowedHosts = []string{"localhost", "127.0.0.1", "backend"}
		common.DatabaseURL = "postgres://app_user:app_password@db:5432/app_db"
		common.AutoMigrate = true
		common.CORSAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:80"}
		common.LogLevel = "DEBUG"
		common.LogFormat = "text"
		common.Environment = "development"
	}
	return common
}

// FromOS loads configuration from the process environment.
func FromOS() (Config, error) {
	return Load(env.ToMap(os.Environ()))
}

// Load resolves configuration from environ, a map of variable names to
// values. Tests pass their own map instead of mutating the process
// environment.
func Load(environ map[string]string) (Config, error) {
	profile, err := parseProfile(environ["APP_ENV"])
	if err != nil {
		return Config{}, err
	}

	if profile != Test {
		merged, err := withDotEnv(environ)
		if err != nil {
			return Config{}, err
		}
		environ = merged
	}

	raw := defaults(profile)
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environ}); err != nil {
		return Config{}, apperror.Configuration("environment", err.Error())
	}

	cfg := Config{
		Profile:                profile,
		Debug:                  raw.Debug,
		SecretKey:              raw.SecretKey,
		AllowedHosts:           cleanList(raw.AllowedHosts),
		DatabaseURL:            strings.TrimSpace(raw.DatabaseURL),
		AutoMigrate:            raw.AutoMigrate,
		CORSAllowedOrigins:     cleanList(raw.CORSAllowedOrigins),
		CSRFTrustedOrigins:     cleanList(raw.CSRFTrustedOrigins),
		SentryDSN:              strings.TrimSpace(raw.SentryDSN),
		SentryTracesSampleRate: raw.SentryTracesSampleRate,
		Environment:            raw.Environment,
		Port:                   raw.Port,
		SecureSSLRedirect:      raw.SecureSSLRedirect,
		SecureHSTSSeconds:      raw.SecureHSTSSeconds,
		StaticRoot:             raw.StaticRoot,
		ShutdownTimeout:        raw.ShutdownTimeout,
	}

	if cfg.LogLevel, err = logging.ParseLevel(raw.LogLevel); err != nil {
		return Config{}, apperror.Configuration("LOG_LEVEL", err.Error())
	}
	if cfg.LogFormat, err = logging.ParseFormat(raw.LogFormat); err != nil {
		return Config{}, apperror.Configuration("LOG_FORMAT", err.Error())
	}

	if profile == Development {
		cfg.CSRFTrustedOrigins = mergeUnique(cfg.CSRFTrustedOrigins, devCSRFOrigins)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Profile == Production {
		switch {
		case c.SecretKey == "":
			return apperror.Configuration("SECRET_KEY", "required in production")
		case len(c.AllowedHosts) == 0:
			return apperror.Configuration("ALLOWED_HOSTS", "required in production")
		case c.DatabaseURL == "":
			return apperror.Configuration("DATABASE_URL", "required in production")
		}
	}
	if c.DatabaseURL == "" {
		return apperror.Configuration("DATABASE_URL", "must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return apperror.Configuration("PORT", fmt.Sprintf("%d is not a valid port", c.Port))
	}
	if c.SentryTracesSampleRate < 0 || c.SentryTracesSampleRate > 1 {
		return apperror.Configuration("SENTRY_TRACES_SAMPLE_RATE", "must be between 0 and 1")
	}
	if c.SecureHSTSSeconds < 0 {
		return apperror.Configuration("SECURE_HSTS_SECONDS", "must not be negative")
	}
	return nil
}

// === HELPERS ===

// withDotEnv returns environ with the variables of the .env file added
// underneath: a variable already present in environ is never replaced.
// A missing file is not an error.
func withDotEnv(environ map[string]string) (map[string]string, error) {
	path := environ["DOTENV_PATH"]
	if path == "" {
		path = ".env"
	}

	fileVars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return environ, nil
		}
		return nil, apperror.Configuration("DOTENV_PATH", fmt.Sprintf("reading %s: %v", path, err))
	}

	merged := make(map[string]string, len(environ)+len(fileVars))
	for k, v := range fileVars {
		merged[k] = v
	}
	for k, v := range environ {
		merged[k] = v
	}
	return merged, nil
}

// cleanList trims entries and drops empty ones, so "a, b," becomes [a b].
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mergeUnique concatenates lists keeping the first occurrence of each entry.
func mergeUnique(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
