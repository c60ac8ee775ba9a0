// Package diaglog wires log/slog for sameappswitcher: a text handler on
// stderr plus a tee of every enabled record to a line sink such as the
// Win32 debugger channel.
package diaglog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
)

// Sink receives one rendered line per teed record.
type Sink func(line string)

// TeeHandler wraps a base [slog.Handler] and tees records at or above
// minLevel to a Sink. All records are forwarded to the base handler
// regardless of level; only the sink invocation is gated by minLevel.
type TeeHandler struct {
	base     slog.Handler
	sink     Sink
	minLevel slog.Leveler
	group    string   // accumulated dot-separated slog group name
	attrs    []string // pre-rendered k=v pairs from WithAttrs
}

// NewTeeHandler creates a TeeHandler that delegates to base and invokes sink
// for every record whose level is >= minLevel.
//
// Passing a nil sink is safe; the handler then only delegates to base.
func NewTeeHandler(base slog.Handler, minLevel slog.Leveler, sink Sink) *TeeHandler {
	if minLevel == nil {
		minLevel = slog.LevelInfo
	}
	return &TeeHandler{
		base:     base,
		sink:     sink,
		minLevel: minLevel,
	}
}

// Enabled reports whether the base handler is enabled for the given level.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then renders it for the
// sink if the record's level meets minLevel. The sink is called even when
// the base handler fails.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.sink != nil && record.Level >= h.minLevel.Level() {
		line := h.render(record)
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Written to stderr, not slog, to avoid re-entering this handler.
					fmt.Fprintf(os.Stderr, "[diaglog] sink panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.sink(line)
		}()
	}

	return err
}

// WithAttrs returns a new TeeHandler whose base handler has the given
// attributes applied. The sink line carries them too.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	rendered := make([]string, 0, len(h.attrs)+len(attrs))
	rendered = append(rendered, h.attrs...)
	for _, a := range attrs {
		rendered = appendAttr(rendered, h.group, a)
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		sink:     h.sink,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    rendered,
	}
}

// WithGroup returns a new TeeHandler whose base handler is wrapped with the
// given group name. Later attributes are rendered with the group prefix.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}

	return &TeeHandler{
		base:     h.base.WithGroup(name),
		sink:     h.sink,
		minLevel: h.minLevel,
		group:    newGroup,
		attrs:    h.attrs,
	}
}

// render formats "LEVEL msg k=v ..." without a timestamp; the debugger
// viewer stamps lines itself.
func (h *TeeHandler) render(record slog.Record) string {
	var b strings.Builder
	b.WriteString(record.Level.String())
	b.WriteByte(' ')
	b.WriteString(record.Message)

	parts := append([]string(nil), h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		parts = appendAttr(parts, h.group, a)
		return true
	})
	for _, p := range parts {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	return b.String()
}

func appendAttr(dst []string, group string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			dst = appendAttr(dst, key, ga)
		}
		return dst
	}
	return append(dst, key+"="+renderValue(a.Value))
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339Nano)
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
