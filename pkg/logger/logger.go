// Package logger provides slog handlers for terminal output.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// highlightPrefixes mark Info messages that report model lifecycle events.
var highlightPrefixes = []string{"loaded", "loading", "evicting", "model cache"}

// ColorHandler is a slog.Handler that writes one colored line per record.
type ColorHandler struct {
	opts   slog.HandlerOptions
	w      io.Writer
	mu     *sync.Mutex
	attrs  []groupedAttr
	groups []string

	level   map[slog.Level]*color.Color
	accent  *color.Color
	keyFmt  *color.Color
	timeFmt *color.Color
}

type groupedAttr struct {
	prefix string
	attr   slog.Attr
}

// NewColorHandler creates a ColorHandler writing to w. A nil opts logs at Info.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	h := &ColorHandler{
		w:  w,
		mu: &sync.Mutex{},
		level: map[slog.Level]*color.Color{
			slog.LevelDebug: color.New(color.FgHiBlack),
			slog.LevelInfo:  color.New(color.FgCyan),
			slog.LevelWarn:  color.New(color.FgYellow),
			slog.LevelError: color.New(color.FgRed, color.Bold),
		},
		accent:  color.New(color.FgGreen),
		keyFmt:  color.New(color.FgHiBlack),
		timeFmt: color.New(color.FgHiBlack),
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// NewDefaultLogger returns a logger writing colored output to stderr at the given level.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New builds a logger for the given level and format ("color", "text" or "json").
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	case "text":
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		return slog.New(NewColorHandler(w, opts))
	}
}

// ParseLevel maps a level name to slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Enabled implements slog.Handler
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(h.timeFmt.Sprint(r.Time.Format(time.TimeOnly)))
		buf.WriteByte(' ')
	}

	buf.WriteString(h.levelColor(r.Level).Sprintf("%-5s", r.Level.String()))
	buf.WriteByte(' ')

	msg := r.Message
	if r.Level == slog.LevelInfo && highlighted(msg) {
		msg = h.accent.Sprint(msg)
	}
	buf.WriteString(msg)

	for _, ga := range h.attrs {
		h.writeAttr(&buf, ga.prefix, ga.attr)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ColorHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := a.Key
		if prefix != "" && p != "" {
			p = prefix + "." + p
		} else if p == "" {
			p = prefix
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, p, ga)
		}
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(nil, slog.Attr{Key: key, Value: a.Value})
		if a.Key == "" {
			return
		}
		key = a.Key
	}
	val := a.Value.String()
	if strings.ContainsAny(val, " \t\"=") {
		val = fmt.Sprintf("%q", val)
	}
	buf.WriteByte(' ')
	buf.WriteString(h.keyFmt.Sprint(key + "="))
	buf.WriteString(val)
}

func (h *ColorHandler) levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return h.level[slog.LevelError]
	case l >= slog.LevelWarn:
		return h.level[slog.LevelWarn]
	case l >= slog.LevelInfo:
		return h.level[slog.LevelInfo]
	default:
		return h.level[slog.LevelDebug]
	}
}

// WithAttrs implements slog.Handler
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		c.attrs = append(c.attrs, groupedAttr{prefix: prefix, attr: a})
	}
	return c
}

// WithGroup implements slog.Handler
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

func (h *ColorHandler) clone() *ColorHandler {
	c := *h
	c.attrs = append([]groupedAttr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

func highlighted(msg string) bool {
	for _, p := range highlightPrefixes {
		if strings.HasPrefix(strings.ToLower(msg), p) {
			return true
		}
	}
	return false
}
