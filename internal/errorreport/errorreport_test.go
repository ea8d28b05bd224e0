package errorreport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/base-backend/internal/logging"
	"github.com/sakif/base-backend/internal/requestid"
)

// recorder collects events in BeforeSend and drops them, so nothing is
// ever sent over the network.
type recorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *recorder) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) all() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.events...)
}

func newTestHub(t *testing.T) (*sentry.Hub, *recorder) {
	t.Helper()
	rec := &recorder{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@sentry.example.com/1",
		BeforeSend: rec.beforeSend,
	})
	require.NoError(t, err)
	return sentry.NewHub(client, sentry.NewScope()), rec
}

func TestOptionsEnabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.False(t, Options{DSN: "https://k@sentry.example.com/1", Debug: true}.Enabled())
	assert.True(t, Options{DSN: "https://k@sentry.example.com/1"}.Enabled())
}

func TestInit_DisabledIsNoop(t *testing.T) {
	hub, err := Init(Options{DSN: "https://k@sentry.example.com/1", Debug: true})
	require.NoError(t, err)
	assert.Nil(t, hub)

	var buf bytes.Buffer
	next := logging.NewHandler(&buf, logging.Options{Format: logging.FormatJSON})
	assert.Same(t, next, Wrap(next, nil))

	Flush(nil, 0) // must not panic
}

func TestInit_InvalidDSN(t *testing.T) {
	_, err := Init(Options{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestWrap_ReportsErrorsWithTags(t *testing.T) {
	hub, rec := newTestHub(t)
	var buf bytes.Buffer
	logger := slog.New(Wrap(logging.NewHandler(&buf, logging.Options{Format: logging.FormatJSON}), hub))
	logger = logging.Named(logger, "apps.users")

	ctx := requestid.WithRequestID(context.Background(), "req-99")
	logger.InfoContext(ctx, "user created", slog.String("email", "someone@example.com"))
	logger.ErrorContext(ctx, "failed to create user",
		slog.String("email", "someone@example.com"),
		logging.Exception(errors.New("disk I/O error")),
	)

	events := rec.all()
	require.Len(t, events, 1, "only ERROR+ records are reported")
	e := events[0]
	assert.Equal(t, sentry.LevelError, e.Level)
	assert.Equal(t, "req-99", e.Tags["request_id"])
	assert.Equal(t, "apps.users", e.Tags["logger"])
	assert.Equal(t, "failed to create user", e.Contexts["log"]["message"])

	var values []string
	for _, x := range e.Exception {
		values = append(values, x.Value)
	}
	assert.Contains(t, values, "disk I/O error")

	// Extras never leave the process.
	assert.NotContains(t, e.Extra, "email")
	assert.Nil(t, e.User.IPAddress, "no PII")

	// The local log still got both records.
	assert.Contains(t, buf.String(), `"message":"user created"`)
	assert.Contains(t, buf.String(), `"message":"failed to create user"`)
}

func TestWrap_MessageWithoutException(t *testing.T) {
	hub, rec := newTestHub(t)
	logger := slog.New(Wrap(logging.NewHandler(&bytes.Buffer{}, logging.Options{Format: logging.FormatJSON}), hub))

	logger.Log(context.Background(), logging.LevelCritical, "out of file descriptors")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, sentry.LevelFatal, events[0].Level)
	assert.Equal(t, "out of file descriptors", events[0].Message)
	assert.Equal(t, "root", events[0].Tags["logger"])
	_, hasRequestID := events[0].Tags["request_id"]
	assert.False(t, hasRequestID)
}

func TestWrap_ReportsEvenWhenNextDropsErrors(t *testing.T) {
	hub, rec := newTestHub(t)
	var buf bytes.Buffer
	next := logging.NewHandler(&buf, logging.Options{Format: logging.FormatJSON, Level: logging.LevelCritical})
	logger := slog.New(Wrap(next, hub))

	logger.Error("lost connection")

	assert.Empty(t, buf.String())
	assert.Len(t, rec.all(), 1)
}

func TestWrap_GroupedLoggerKeyIsNotTheName(t *testing.T) {
	hub, rec := newTestHub(t)
	logger := slog.New(Wrap(logging.NewHandler(&bytes.Buffer{}, logging.Options{Format: logging.FormatJSON}), hub))

	logger.WithGroup("db").With(slog.String(logging.LoggerKey, "inner")).Error("boom")

	require.Len(t, rec.all(), 1)
	assert.Equal(t, "root", rec.all()[0].Tags["logger"])
}
