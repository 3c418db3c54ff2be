// Package logger provides the structured JSON logging facade used across
// Casa Luna. It is a thin layer over log/slog that tags every entry with the
// service name, hostname and the action being performed.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	Action(action string) Logger
	With(args ...any) Logger
	WithGroup(group string) Logger

	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

type slogLogger struct {
	l *slog.Logger
}

// New builds a Logger writing JSON entries to stdout at the given level
// (DEBUG, INFO, WARN or ERROR).
func New(level string) (Logger, error) {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput is New with an explicit sink, used by tests.
func NewWithOutput(level string, out io.Writer) (Logger, error) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	hostname, _ := os.Hostname()
	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	return &slogLogger{l: slog.New(h).With("hostname", hostname)}, nil
}

func (s *slogLogger) Action(action string) Logger {
	return &slogLogger{l: s.l.With("action", action)}
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) WithGroup(group string) Logger {
	return &slogLogger{l: s.l.WithGroup(group)}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }

func (s *slogLogger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	s.l.Error(msg, args...)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() Logger {
	return &slogLogger{l: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}
