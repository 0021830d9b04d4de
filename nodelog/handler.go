package nodelog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// TimeLayout is the timestamp layout of log lines (millisecond precision, comma separator).
const TimeLayout = "2006-01-02 15:04:05,000"

// handler formats records as "[NODE_<rank>] <time> - <name> - <LEVEL> - <msg> k=v" and writes them
// to the sinks its registry entry resolves to.
type handler struct {
	reg    *Registry
	ent    *entry
	attrs  []byte // pre-rendered " k=v" pairs from WithAttrs
	prefix string // group prefix, e.g. "req."
}

// Ensures handler implements slog.Handler.
var _ slog.Handler = (*handler)(nil)

// Enabled implements slog.Handler.
func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	h.reg.mu.RLock()
	defer h.reg.mu.RUnlock()
	return level >= h.reg.levelLocked(h.ent)
}

// Handle implements slog.Handler.
func (h *handler) Handle(_ context.Context, rec slog.Record) error {
	rank, now, sinks := h.reg.target(h.ent)
	if len(sinks) == 0 {
		return nil
	}
	ts := rec.Time
	if ts.IsZero() {
		ts = now
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[NODE_%s] %s - %s - %s - %s", rank, ts.Format(TimeLayout), h.ent.name, levelName(rec.Level), rec.Message)
	buf.Write(h.attrs)
	rec.Attrs(func(a slog.Attr) bool {
		appendAttr(&buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')
	line := buf.Bytes()
	var firstErr error
	for _, s := range sinks {
		if _, err := s.w.Write(line); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("nodelog: write to %s: %w", s.name, err)
		}
	}
	return firstErr
}

// WithAttrs implements slog.Handler.
func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	buf.Write(h.attrs)
	for _, a := range attrs {
		appendAttr(&buf, h.prefix, a)
	}
	h2 := *h
	h2.attrs = buf.Bytes()
	return &h2
}

// WithGroup implements slog.Handler.
func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// levelName maps slog levels to the names used in the log format.
func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	case l == slog.LevelError:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

func appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return
		}
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			appendAttr(buf, p, ga)
		}
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '=' || !unicode.IsPrint(r)
	}) >= 0 {
		return strconv.Quote(s)
	}
	return s
}
