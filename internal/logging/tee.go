package logging

import (
	"context"
	"errors"
	"log/slog"
)

// tee writes each record to every sink that accepts its level.
type tee []slog.Handler

// Tee combines handlers. A single handler is returned as is.
func Tee(handlers ...slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return tee(handlers)
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		err = errors.Join(err, h.Handle(ctx, r.Clone()))
	}
	return err
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t tee) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t tee) each(fn func(slog.Handler) slog.Handler) tee {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
