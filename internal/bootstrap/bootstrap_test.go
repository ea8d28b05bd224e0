package bootstrap

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/base-backend/internal/auth"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/logging"
)

func TestLogger_FollowsProfile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := config.Load(map[string]string{"APP_ENV": "test", "LOG_FORMAT": "json", "LOG_LEVEL": "INFO"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, hub, err := Logger(cfg, &buf, "")
	require.NoError(t, err)
	assert.Nil(t, hub, "no SENTRY_DSN, no hub")

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Same(t, logger, slog.Default())
}

func TestLogger_DiscardWritesNothing(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := config.Load(map[string]string{"APP_ENV": "test"})
	require.NoError(t, err)
	require.Equal(t, logging.FormatDiscard, cfg.LogFormat)

	var buf bytes.Buffer
	logger, _, err := Logger(cfg, &buf, "")
	require.NoError(t, err)

	logger.Error("dropped")
	assert.Empty(t, buf.String())
}

func TestLogger_InvalidSentryDSN(t *testing.T) {
	cfg, err := config.Load(map[string]string{"APP_ENV": "test", "SENTRY_DSN": "not a dsn"})
	require.NoError(t, err)

	_, _, err = Logger(cfg, &bytes.Buffer{}, "")
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	testCfg := config.Config{Profile: config.Test}
	assert.Equal(t, bcrypt.MinCost, Passwords(testCfg).Cost())

	prodCfg := config.Config{Profile: config.Production}
	assert.Equal(t, auth.NewPasswordService().Cost(), Passwords(prodCfg).Cost())
}
