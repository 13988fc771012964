package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "02.01.2006 15:04:05"

// textHandler renders records as
//
//	[DD.MM.YYYY HH:MM:SS] LEVEL  [module] message key=value
//
// The module attribute is lifted out of the key/value list.
type textHandler struct {
	w        io.Writer
	mu       *sync.Mutex
	level    slog.Level
	timezone *time.Location
	attrs    []slog.Attr
	group    string
}

func newTextHandler(w io.Writer, level slog.Level, timezone *time.Location) *textHandler {
	if timezone == nil {
		timezone = time.Local
	}
	return &textHandler{
		w:        w,
		mu:       &sync.Mutex{},
		level:    level,
		timezone: timezone,
	}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *textHandler) Handle(_ context.Context, record slog.Record) error {
	var buf bytes.Buffer

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteByte('[')
	buf.WriteString(ts.In(h.timezone).Format(consoleTimeLayout))
	buf.WriteString("] ")
	buf.WriteString(fmt.Sprintf("%-6s", levelName(record.Level)))

	module := ""
	var rest []slog.Attr
	collect := func(a slog.Attr) bool {
		if a.Key == moduleKey && h.group == "" {
			module = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(collect)

	if module != "" {
		buf.WriteByte('[')
		buf.WriteString(module)
		buf.WriteString("] ")
	}
	buf.WriteString(record.Message)

	for _, a := range rest {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		buf.WriteByte(' ')
		buf.WriteString(key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		return fmt.Sprint(v.Any())
	}
}
