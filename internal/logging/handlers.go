package logging

import (
	"context"
	"log/slog"
	"time"
)

// AttrFunc returns attributes computed at the moment a record is handled.
type AttrFunc func() []slog.Attr

// SessionAttrs stamps records with the running session and its simulation
// clock. Nothing is added while no session is open.
func SessionAttrs(sessionID func() string, simTime func() time.Duration) AttrFunc {
	return func() []slog.Attr {
		id := sessionID()
		if id == "" {
			return nil
		}
		return []slog.Attr{slog.String("session", id), slog.Duration("simTime", simTime())}
	}
}

// tee copies each record to every sink that accepts its level. A failing
// sink does not stop the others.
type tee []slog.Handler

func newTee(sinks ...slog.Handler) tee {
	var t tee
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range t {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	for _, s := range t {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		_ = s.Handle(ctx, r.Clone())
	}
	return nil
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (t tee) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return t.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (t tee) each(fn func(slog.Handler) slog.Handler) tee {
	out := make(tee, len(t))
	for i, s := range t {
		out[i] = fn(s)
	}
	return out
}

// stamped appends the result of attrs to every record before passing it on.
type stamped struct {
	next  slog.Handler
	attrs AttrFunc
}

func (h stamped) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h stamped) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs()...)
	return h.next.Handle(ctx, r)
}

func (h stamped) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stamped{next: h.next.WithAttrs(attrs), attrs: h.attrs}
}

func (h stamped) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return stamped{next: h.next.WithGroup(name), attrs: h.attrs}
}
