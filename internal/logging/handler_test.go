package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/base-backend/internal/requestid"
)

func newJSONLogger(t *testing.T, level slog.Level) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(&buf, Options{Format: FormatJSON, Level: level}), &buf
}

func newTextLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(&buf, Options{Format: FormatText, Level: slog.LevelDebug}), &buf
}

// decodeLines parses every output line as a JSON object.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line is not valid JSON: %s", line)
		out = append(out, m)
	}
	return out
}

var requiredFields = []string{"timestamp", "level", "logger", "message", "module", "function", "line"}

// =========================================================================
// JSON FORMAT
// =========================================================================

func TestJSON_RequiredFieldsWithoutRequestID(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.Info("hello")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	rec := lines[0]

	for _, k := range requiredFields {
		assert.Contains(t, rec, k)
	}
	assert.Len(t, rec, len(requiredFields), "no optional fields expected: %v", rec)
	assert.NotContains(t, rec, "request_id")

	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "root", rec["logger"])
	assert.Equal(t, "hello", rec["message"])
	assert.Equal(t, "handler_test", rec["module"])
	assert.Contains(t, rec["function"], "TestJSON_RequiredFieldsWithoutRequestID")
	assert.Greater(t, rec["line"], float64(0))

	ts, err := time.Parse(time.RFC3339Nano, rec["timestamp"].(string))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, strings.HasSuffix(rec["timestamp"].(string), "Z"))
	assert.Regexp(t, `\.\d{3}Z$`, rec["timestamp"])
}

func TestJSON_IncludesRequestIDFromContext(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)
	ctx := requestid.WithRequestID(context.Background(), "abc-123")

	log.InfoContext(ctx, "with id")

	rec := decodeLines(t, buf)[0]
	assert.Equal(t, "abc-123", rec["request_id"])
}

func TestJSON_NamedLogger(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	Named(log, "apps.users").Info("named")
	Named(Named(log, "apps"), "apps.core").Info("renamed")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "apps.users", lines[0]["logger"])
	assert.Equal(t, "apps.core", lines[1]["logger"])
}

func TestJSON_ExtrasMergedAndReservedKeysDropped(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.With(slog.String("component", "identity")).Info("extras",
		slog.String("user_id", "u1"),
		slog.Int("attempt", 3),
		slog.Bool("created", true),
		slog.Float64("ratio", 0.5),
		slog.Duration("took", 1500*time.Millisecond),
		slog.String("message", "must not overwrite"),
		slog.String("level", "nope"),
		slog.Int("line", -1),
	)

	rec := decodeLines(t, buf)[0]
	assert.Equal(t, "extras", rec["message"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Greater(t, rec["line"], float64(0))
	assert.Equal(t, "identity", rec["component"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, float64(3), rec["attempt"])
	assert.Equal(t, true, rec["created"])
	assert.Equal(t, 0.5, rec["ratio"])
	assert.Equal(t, "1.5s", rec["took"])
}

func TestJSON_Groups(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.WithGroup("http").With(slog.String("method", "GET")).Info("req",
		slog.Int("status", 200),
		slog.Group("client", slog.String("ip", "10.0.0.1")),
	)

	rec := decodeLines(t, buf)[0]
	httpGroup, ok := rec["http"].(map[string]any)
	require.True(t, ok, "http group missing: %v", rec)
	assert.Equal(t, "GET", httpGroup["method"])
	assert.Equal(t, float64(200), httpGroup["status"])
	client, ok := httpGroup["client"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", client["ip"])
}

func TestJSON_EmptyGroupOmitted(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.WithGroup("empty").Info("no attrs")

	rec := decodeLines(t, buf)[0]
	assert.NotContains(t, rec, "empty")
}

type unserializable struct {
	Ch chan int
}

type panicky struct{}

func (panicky) MarshalJSON() ([]byte, error) { panic("cannot marshal") }

func TestJSON_MalformedExtrasAreStringified(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.Info("odd values",
		slog.Any("channel", unserializable{Ch: make(chan int)}),
		slog.Any("panics", panicky{}),
		slog.Float64("nan", math.NaN()),
		slog.Any("inf", math.Inf(1)),
		slog.Any("err", errors.New("plain failure")),
	)

	rec := decodeLines(t, buf)[0]
	assert.Equal(t, "odd values", rec["message"])
	assert.IsType(t, "", rec["channel"])
	assert.Contains(t, rec["panics"], "PANIC")
	assert.Equal(t, "NaN", rec["nan"])
	assert.Equal(t, "+Inf", rec["inf"])
	assert.Equal(t, "plain failure", rec["err"])
}

func TestJSON_StructExtrasEncodedAsJSON(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.Info("struct", slog.Any("payload", map[string]int{"a": 1}))

	rec := decodeLines(t, buf)[0]
	assert.Equal(t, map[string]any{"a": float64(1)}, rec["payload"])
}

func TestJSON_Exception(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.Error("insert failed", Exception(errors.New("disk full")))

	rec := decodeLines(t, buf)[0]
	exc, ok := rec["exception"].(string)
	require.True(t, ok, "exception field missing: %v", rec)
	assert.True(t, strings.HasPrefix(exc, "disk full"))
	assert.Contains(t, exc, "TestJSON_Exception", "stack should include the call site")
	assert.Equal(t, "ERROR", rec["level"])
}

func TestJSON_NilException(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.Info("no failure", Exception(nil))

	rec := decodeLines(t, buf)[0]
	assert.NotContains(t, rec, "exception")
}

func TestJSON_LevelFiltering(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelWarn)

	log.Info("dropped")
	log.Warn("kept")
	log.Log(context.Background(), LevelCritical, "critical")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "WARNING", lines[0]["level"])
	assert.Equal(t, "CRITICAL", lines[1]["level"])
}

// =========================================================================
// TEXT FORMAT
// =========================================================================

func TestText_LineLayout(t *testing.T) {
	log, buf := newTextLogger(t)

	log.Info("server starting", slog.Int("port", 8000), slog.String("note", "two words"))

	line := strings.TrimSpace(buf.String())
	assert.Regexp(t, `^INFO \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3} \[no-request-id\] handler_test server starting`, line)
	assert.Contains(t, line, " port=8000")
	assert.Contains(t, line, ` note="two words"`)
}

func TestText_RequestIDAndException(t *testing.T) {
	log, buf := newTextLogger(t)
	ctx := requestid.WithRequestID(context.Background(), "req-7")

	log.ErrorContext(ctx, "boom", Exception(errors.New("kaput")), slog.Group("db", slog.String("op", "insert")))

	out := buf.String()
	assert.Contains(t, out, "ERROR ")
	assert.Contains(t, out, "[req-7]")
	assert.Contains(t, out, " db.op=insert")
	assert.Contains(t, out, "\n  kaput")
}

// =========================================================================
// PARSING / CONSTRUCTION
// =========================================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"CRITICAL", LevelCritical},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("LOUD")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("discard")
	require.NoError(t, err)
	assert.Equal(t, FormatDiscard, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNew_DiscardWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Format: FormatDiscard})

	log.Error("gone")

	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestHandle_WriteErrorDoesNotPanic(t *testing.T) {
	log := New(failingWriter{}, Options{Format: FormatJSON})

	assert.NotPanics(t, func() { log.Info("still fine") })
}
