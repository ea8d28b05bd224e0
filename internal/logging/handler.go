package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sakif/base-backend/internal/requestid"
)

// Handler implements slog.Handler. Handlers derived with WithAttrs or
// WithGroup share the writer and its mutex, so lines never interleave.
type Handler struct {
	format Format
	level  slog.Leveler
	out    *output
	name   string
	bound  []boundAttr
	groups []string
}

type output struct {
	mu sync.Mutex
	w  io.Writer
}

// boundAttr is an attribute added via With, remembered together with the
// groups that were open at the time.
type boundAttr struct {
	groups []string
	attr   slog.Attr
}

// compile-time check that *Handler implements slog.Handler
var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a Handler writing to w. FormatDiscard is treated as
// FormatText here; use New to get a discarding logger.
func NewHandler(w io.Writer, opts Options) *Handler {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	format := opts.Format
	if format == FormatDiscard {
		format = FormatText
	}
	return &Handler{
		format: format,
		level:  level,
		out:    &output{w: w},
		name:   rootLogger,
	}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		if len(h2.groups) == 0 && a.Key == LoggerKey {
			h2.name = a.Value.Resolve().String()
			continue
		}
		h2.bound = append(h2.bound, boundAttr{groups: h2.groups, attr: a})
	}
	return h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups[:len(h2.groups):len(h2.groups)], name)
	return h2
}

func (h *Handler) clone() *Handler {
	return &Handler{
		format: h.format,
		level:  h.level,
		out:    h.out,
		name:   h.name,
		bound:  h.bound[:len(h.bound):len(h.bound)],
		groups: h.groups[:len(h.groups):len(h.groups)],
	}
}

// Handle renders r and writes one line. Write errors are returned to slog,
// which discards them; logging never fails the caller.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rec := h.collect(ctx, r)

	var buf bytes.Buffer
	if h.format == FormatJSON {
		rec.appendJSON(&buf)
	} else {
		rec.appendText(&buf)
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := h.out.w.Write(buf.Bytes())
	return err
}

// entry is a fully resolved record, independent of the output format.
type entry struct {
	time      time.Time
	level     slog.Level
	logger    string
	message   string
	module    string
	function  string
	line      int
	requestID string
	exception string
	fields    []field
}

func (h *Handler) collect(ctx context.Context, r slog.Record) *entry {
	e := &entry{
		time:    r.Time,
		level:   r.Level,
		logger:  h.name,
		message: r.Message,
	}
	if e.time.IsZero() {
		e.time = time.Now()
	}
	e.module, e.function, e.line = source(r.PC)
	if id, ok := requestid.FromContext(ctx); ok {
		e.requestID = id
	}

	for _, b := range h.bound {
		e.add(b.groups, b.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.groups, a)
		return true
	})
	return e
}

// add resolves a and places it in the field tree under path.
func (e *entry) add(path []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Key == "" && a.Value.Kind() == slog.KindAny && a.Value.Any() == nil {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		sub := path
		if a.Key != "" {
			sub = append(path[:len(path):len(path)], a.Key)
		}
		for _, ga := range attrs {
			e.add(sub, ga)
		}
		return
	}

	if len(path) == 0 {
		switch a.Key {
		case LoggerKey:
			e.logger = a.Value.String()
			return
		case ExceptionKey:
			e.exception = renderException(a.Value.Any())
			return
		}
		if reservedKeys[a.Key] {
			return
		}
	}
	e.fields = insertField(e.fields, path, field{key: a.Key, value: convert(a.Value)})
}

// source derives module (file name without extension), function and line
// from the program counter slog captured at the call site.
func source(pc uintptr) (module, function string, line int) {
	if pc == 0 {
		return "", "", 0
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	module = strings.TrimSuffix(filepath.Base(f.File), filepath.Ext(f.File))
	function = f.Function
	if i := strings.LastIndex(function, "/"); i >= 0 {
		function = function[i+1:]
	}
	return module, function, f.Line
}
