package build

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// HandlerSet fans every log record out to a set of underlying handlers. It
// is how a single logger writes to both the console and the rotating log
// file, while a level change applies to the whole set at once.
type HandlerSet struct {
	level btclog.Level
	set   []btclogv2.Handler
}

// Ensure HandlerSet implements btclog.Handler at compile time.
var _ btclogv2.Handler = (*HandlerSet)(nil)

// NewHandlerSet constructs a HandlerSet over the given handlers, applying
// the given level to each of them.
func NewHandlerSet(level btclog.Level,
	handlers ...btclogv2.Handler) *HandlerSet {

	h := &HandlerSet{
		set:   handlers,
		level: level,
	}
	h.SetLevel(level)

	return h
}

// Enabled reports whether every handler in the set handles records at the
// given level.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// Handle dispatches the record to every handler in the set, stopping at the
// first error.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.set {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// WithAttrs returns a new handler set whose members all carry the given
// attributes.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	newSet := &slogSet{set: make([]slog.Handler, len(h.set))}
	for i, handler := range h.set {
		newSet.set[i] = handler.WithAttrs(attrs)
	}

	return newSet
}

// WithGroup returns a new handler set whose members all carry the given
// group.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithGroup(name string) slog.Handler {
	newSet := &slogSet{set: make([]slog.Handler, len(h.set))}
	for i, handler := range h.set {
		newSet.set[i] = handler.WithGroup(name)
	}

	return newSet
}

// SubSystem returns a new handler set tagged with the given sub-system.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SubSystem(tag string) btclogv2.Handler {
	newSet := &HandlerSet{
		set:   make([]btclogv2.Handler, len(h.set)),
		level: h.level,
	}
	for i, handler := range h.set {
		newSet.set[i] = handler.SubSystem(tag)
	}

	return newSet
}

// SetLevel changes the logging level on every handler in the set.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

// Level returns the current logging level.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) Level() btclog.Level {
	return h.level
}

// WithPrefix returns a new handler set that prefixes each log message with
// the given string.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) WithPrefix(prefix string) btclogv2.Handler {
	newSet := &HandlerSet{
		set:   make([]btclogv2.Handler, len(h.set)),
		level: h.level,
	}
	for i, handler := range h.set {
		newSet.set[i] = handler.WithPrefix(prefix)
	}

	return newSet
}

// slogSet is the plain slog.Handler fan-out that WithAttrs and WithGroup
// collapse to, since those methods return slog.Handlers rather than
// btclog.Handlers.
type slogSet struct {
	set []slog.Handler
}

// Ensure slogSet implements slog.Handler at compile time.
var _ slog.Handler = (*slogSet)(nil)

// Enabled reports whether every handler in the set handles records at the
// given level.
//
// NOTE: this is part of the slog.Handler interface.
func (s *slogSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range s.set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// Handle dispatches the record to every handler in the set, stopping at the
// first error.
//
// NOTE: this is part of the slog.Handler interface.
func (s *slogSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range s.set {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// WithAttrs returns a new handler set whose members all carry the given
// attributes.
//
// NOTE: this is part of the slog.Handler interface.
func (s *slogSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	newSet := &slogSet{set: make([]slog.Handler, len(s.set))}
	for i, handler := range s.set {
		newSet.set[i] = handler.WithAttrs(attrs)
	}

	return newSet
}

// WithGroup returns a new handler set whose members all carry the given
// group.
//
// NOTE: this is part of the slog.Handler interface.
func (s *slogSet) WithGroup(name string) slog.Handler {
	newSet := &slogSet{set: make([]slog.Handler, len(s.set))}
	for i, handler := range s.set {
		newSet.set[i] = handler.WithGroup(name)
	}

	return newSet
}
