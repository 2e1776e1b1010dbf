package mylogger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog with the action-tagged style used across the services.
// Copies are cheap; With/Action return derived loggers.
type Logger struct {
	l *slog.Logger
}

func New(service string) Logger {
	hostname, _ := os.Hostname()

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level(),
	})
	return Logger{
		l: slog.New(handler).With("service", service, "hostname", hostname),
	}
}

func level() slog.Level {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Action tags every record of the derived logger with an action name.
func (lg Logger) Action(action string) Logger {
	return Logger{l: lg.l.With("action", action)}
}

func (lg Logger) With(args ...any) Logger {
	return Logger{l: lg.l.With(args...)}
}

func (lg Logger) WithGroup(name string) Logger {
	return Logger{l: lg.l.WithGroup(name)}
}

func (lg Logger) Debug(msg string, args ...any) {
	lg.l.Debug(msg, args...)
}

func (lg Logger) Info(msg string, args ...any) {
	lg.l.Info(msg, args...)
}

func (lg Logger) Warn(msg string, args ...any) {
	lg.l.Warn(msg, args...)
}

func (lg Logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	lg.l.Error(msg, args...)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() Logger {
	return Logger{l: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}
