// Package logger is a small structured-logging facade over log/slog used by
// the HTTP layer. It keeps field construction explicit and lets handlers
// carry a logger without depending on slog's API directly.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown strings default to
// info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a field from any value.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field   { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }

// Duration renders a duration as its string form.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Err builds the conventional "error" field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger emits JSON log lines through slog.
type Logger struct {
	sl *slog.Logger
}

// Options configures a Logger.
type Options struct {
	// Output defaults to stdout.
	Output io.Writer

	// Level is the minimum severity to emit.
	Level Level

	// AddCaller includes the source file and line.
	AddCaller bool
}

// New creates a Logger writing JSON to the configured output.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     opts.Level.slog(),
		AddSource: opts.AddCaller,
	})
	return &Logger{sl: slog.New(handler)}
}

// Default creates an info-level logger on stdout with caller info.
func Default() *Logger {
	return New(Options{Level: LevelInfo, AddCaller: true})
}

// With returns a logger that attaches the fields to every line.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{sl: l.sl.With(args(fields)...)}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.sl.Debug(msg, args(fields)...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.sl.Info(msg, args(fields)...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.sl.Warn(msg, args(fields)...) }
func (l *Logger) Error(msg string, fields ...Field) { l.sl.Error(msg, args(fields)...) }

func args(fields []Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}
