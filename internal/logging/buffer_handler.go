package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// LogCallback receives each entry after it is buffered.
type LogCallback func(entry LogEntry)

// BufferHandler stores records in the package ring buffer and hands them
// to the log callback. Records logged before Initialize are discarded.
type BufferHandler struct {
	level  slog.Leveler
	module string
	attrs  map[string]any // rendered WithAttrs values
	prefix string         // open groups, dot separated
}

// NewBufferHandler creates a buffer handler gated by level.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level, module: "app"}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	mutex.RLock()
	buffer, callback := logBuffer, logCallback
	mutex.RUnlock()
	if buffer == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelToString(r.Level),
		Module:     h.module,
		Message:    r.Message,
		Attributes: maps.Clone(h.attrs),
	}
	if entry.Attributes == nil {
		entry.Attributes = make(map[string]any, r.NumAttrs())
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" && h.prefix == "" {
			entry.Module = a.Value.String()
		} else {
			render(entry.Attributes, h.prefix, a)
		}
		return true
	})

	entry = buffer.Write(entry)
	if callback != nil {
		callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler. A top-level "module" attribute names
// the entry's module instead of becoming an attribute.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = maps.Clone(h.attrs)
	if next.attrs == nil {
		next.attrs = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		render(next.attrs, h.prefix, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// render stores a under prefix+key with a JSON-friendly value.
func render(dst map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key

	switch a.Value.Kind() {
	case slog.KindGroup:
		inner := prefix
		if a.Key != "" {
			inner = key + "."
		}
		for _, ga := range a.Value.Group() {
			render(dst, inner, ga)
		}
	case slog.KindTime:
		dst[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = a.Value.Duration().String()
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			dst[key] = v.Error()
		case fmt.Stringer:
			dst[key] = v.String()
		default:
			dst[key] = v
		}
	default:
		dst[key] = a.Value.Any()
	}
}

func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}

// FormatLogLine renders an entry as one text line, attributes sorted by key.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(entry.Level),
		entry.Module,
		entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
