package logging

import (
	"context"
	"log/slog"
)

// SlogLogger is the slog-backed Logger used by the filevault server. The
// app constructs it over a JSON handler; services derive per-module child
// loggers from it via With("module", ...).
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps an already-configured *slog.Logger. Handler choice
// (format, level, output) stays with the caller.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

// With returns a child logger carrying args on every record.
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
