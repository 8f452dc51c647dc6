// Package slogutil provides the slog handlers and logger construction used by
// every subsystem. Logs go to stderr because stdout carries the protocol.
package slogutil

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
	"unicode/utf8"
)

// MaxValueRunes caps a single rendered attribute value. Questions and file
// excerpts can be long; the log line keeps only the head.
const MaxValueRunes = 160

// TextHandler formats records as:
// TIMESTAMP [level] Message | key=value key="value with spaces"
//
// String values pass through an optional scrub function before they are
// written, so secrets in questions and file excerpts never reach the log.
type TextHandler struct {
	w      io.Writer
	level  slog.Leveler
	scrub  func(string) string
	attrs  []slog.Attr
	prefix string
	mu     *sync.Mutex
}

// NewTextHandler creates a new text handler.
func NewTextHandler(w io.Writer, opts *slog.HandlerOptions) *TextHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &TextHandler{w: w, level: level, mu: &sync.Mutex{}}
}

// WithScrubber returns a copy of the handler that rewrites string values with fn.
func (h *TextHandler) WithScrubber(fn func(string) string) *TextHandler {
	cp := *h
	cp.scrub = fn
	return &cp
}

// Enabled reports whether the handler handles records at the given level.
func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(r.Time.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	buf.WriteString(h.clean(r.Message))

	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = h.flatten(attrs, h.prefix, a)
		return true
	})

	if len(attrs) > 0 {
		buf.WriteString(" |")
		for _, a := range attrs {
			buf.WriteByte(' ')
			buf.WriteString(a.Key)
			buf.WriteByte('=')
			buf.WriteString(quoteIfNeeded(h.clean(formatValue(a.Value))))
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		cp.attrs = h.flatten(cp.attrs, h.prefix, a)
	}
	return &cp
}

// WithGroup returns a new handler whose later keys are prefixed with name.
func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

// flatten appends a to dst, expanding group values into dotted keys and
// dropping empty keys.
func (h *TextHandler) flatten(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = h.flatten(dst, inner, ga)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	return append(dst, slog.Attr{Key: prefix + a.Key, Value: a.Value})
}

// clean scrubs and truncates a rendered string.
func (h *TextHandler) clean(s string) string {
	if h.scrub != nil {
		s = h.scrub(s)
	}
	if utf8.RuneCountInString(s) <= MaxValueRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxValueRunes]) + "…"
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	}
	switch x := v.Any().(type) {
	case []string:
		return strings.Join(x, ",")
	case error:
		return x.Error()
	default:
		return fmt.Sprint(x)
	}
}
