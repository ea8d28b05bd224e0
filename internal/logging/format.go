package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// field is one extra attribute. value is always one of: nil, string, int64,
// uint64, float64, bool, json.RawMessage or []field (a group).
type field struct {
	key   string
	value any
}

func insertField(fields []field, path []string, f field) []field {
	if len(path) == 0 {
		return append(fields, f)
	}
	for i := range fields {
		if fields[i].key != path[0] {
			continue
		}
		if sub, ok := fields[i].value.([]field); ok {
			fields[i].value = insertField(sub, path[1:], f)
			return fields
		}
	}
	return append(fields, field{key: path[0], value: insertField(nil, path[1:], f)})
}

// convert maps a resolved slog.Value onto the closed set of field values.
func convert(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		f := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return f
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny:
		return convertAny(v.Any())
	}
	return v.String()
}

// convertAny encodes arbitrary values as JSON when possible and falls back
// to their fmt representation otherwise. A value that panics while being
// rendered is replaced by a marker rather than dropping the record.
func convertAny(x any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("!PANIC(%v)", r)
		}
	}()

	switch t := x.(type) {
	case nil:
		return nil
	case exception:
		return t.render()
	case error:
		return t.Error()
	case json.Marshaler:
		// fall through to Marshal below
	case fmt.Stringer:
		return t.String()
	}

	raw, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprintf("%+v", x)
	}
	return json.RawMessage(raw)
}

// exception carries an error plus the stack captured where Exception was called.
type exception struct {
	err   error
	stack []uintptr
}

// Exception attaches failure information to a record. The JSON format emits
// it as the top-level "exception" field; the text format prints it on the
// lines following the message. A nil err yields an empty attr, which slog
// ignores.
func Exception(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	return slog.Any(ExceptionKey, exception{err: err, stack: pcs[:n]})
}

// ExceptionError returns the error carried by an attr built with Exception.
func ExceptionError(a slog.Attr) (error, bool) {
	if a.Key != ExceptionKey || a.Value.Kind() != slog.KindAny {
		return nil, false
	}
	switch t := a.Value.Any().(type) {
	case exception:
		return t.err, true
	case error:
		return t, true
	}
	return nil, false
}

func (x exception) render() string {
	var b strings.Builder
	b.WriteString(errorText(x.err))
	if len(x.stack) == 0 {
		return b.String()
	}
	frames := runtime.CallersFrames(x.stack)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "\n  %s\n    %s:%d", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

func renderException(x any) string {
	switch t := x.(type) {
	case exception:
		return t.render()
	case error:
		return errorText(t)
	}
	return fmt.Sprint(x)
}

func errorText(err error) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("!PANIC(%v)", r)
		}
	}()
	return err.Error()
}

// === JSON ===

func (e *entry) appendJSON(buf *bytes.Buffer) {
	buf.WriteByte('{')
	appendKey(buf, TimestampKey, true)
	appendValue(buf, e.time.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	appendKey(buf, LevelKey, false)
	appendValue(buf, LevelName(e.level))
	appendKey(buf, LoggerKey, false)
	appendValue(buf, e.logger)
	appendKey(buf, MessageKey, false)
	appendValue(buf, e.message)
	appendKey(buf, ModuleKey, false)
	appendValue(buf, e.module)
	appendKey(buf, FunctionKey, false)
	appendValue(buf, e.function)
	appendKey(buf, LineKey, false)
	appendValue(buf, int64(e.line))
	if e.requestID != "" {
		appendKey(buf, RequestIDKey, false)
		appendValue(buf, e.requestID)
	}
	if e.exception != "" {
		appendKey(buf, ExceptionKey, false)
		appendValue(buf, e.exception)
	}
	for _, f := range e.fields {
		appendKey(buf, f.key, false)
		appendValue(buf, f.value)
	}
	buf.WriteString("}\n")
}

func appendKey(buf *bytes.Buffer, key string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	appendValue(buf, key)
	buf.WriteByte(':')
}

func appendValue(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case []field:
		buf.WriteByte('{')
		for i, f := range t {
			appendKey(buf, f.key, i == 0)
			appendValue(buf, f.value)
		}
		buf.WriteByte('}')
		return
	case json.RawMessage:
		buf.Write(t)
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		// unreachable for the closed value set; keep the line valid anyway
		raw, _ = json.Marshal(fmt.Sprint(v))
	}
	buf.Write(raw)
}

// === TEXT ===

// appendText renders:
//
//	INFO 2026-01-02 15:04:05,000 [<request id>] <module> <message> key=value ...
//	  <exception, indented>
func (e *entry) appendText(buf *bytes.Buffer) {
	rid := e.requestID
	if rid == "" {
		rid = NoRequestID
	}
	buf.WriteString(LevelName(e.level))
	buf.WriteByte(' ')
	buf.WriteString(e.time.UTC().Format("2006-01-02 15:04:05,000"))
	buf.WriteString(" [")
	buf.WriteString(rid)
	buf.WriteString("] ")
	buf.WriteString(e.module)
	buf.WriteByte(' ')
	buf.WriteString(e.message)
	appendTextFields(buf, "", e.fields)
	if e.exception != "" {
		for _, line := range strings.Split(e.exception, "\n") {
			buf.WriteString("\n  ")
			buf.WriteString(line)
		}
	}
	buf.WriteByte('\n')
}

func appendTextFields(buf *bytes.Buffer, prefix string, fields []field) {
	for _, f := range fields {
		key := f.key
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := f.value.([]field); ok {
			appendTextFields(buf, key, sub)
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(key)
		buf.WriteByte('=')
		buf.WriteString(textValue(f.value))
	}
}

func textValue(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		s = t
	case json.RawMessage:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' || r == 0x7f || r > 0x7e {
			return true
		}
	}
	return false
}
