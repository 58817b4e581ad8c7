package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger defines the logging interface used throughout the map engine
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	SetLevel(level slog.Level)
	GetLevel() slog.Level
	EnableHTTPLogging()
	DisableHTTPLogging()
	IsHTTPLoggingEnabled() bool
}

// SlogLogger wraps slog.Logger to implement Logger.
// Loggers derived with With share the level and the HTTP logging switch.
type SlogLogger struct {
	logger      *slog.Logger
	level       *slog.LevelVar
	httpLogging *atomic.Bool
}

// New creates a SlogLogger writing to stdout at info level
func New() *SlogLogger {
	return NewWithLevel(slog.LevelInfo)
}

// NewWithLevel creates a SlogLogger writing to stdout at the given level
func NewWithLevel(level slog.Level) *SlogLogger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a SlogLogger writing text records to w
func NewWithWriter(w io.Writer, level slog.Level) *SlogLogger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	return &SlogLogger{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: levelVar,
		})),
		level:       levelVar,
		httpLogging: &atomic.Bool{},
	}
}

// ParseLevel converts a string log level to slog.Level.
// Accepts: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo if the level is not recognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// With returns a child logger that adds args to every record
func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{
		logger:      l.logger.With(args...),
		level:       l.level,
		httpLogging: l.httpLogging,
	}
}

// SetLevel changes the logging level dynamically
func (l *SlogLogger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// GetLevel returns the current logging level
func (l *SlogLogger) GetLevel() slog.Level {
	return l.level.Level()
}

func (l *SlogLogger) EnableHTTPLogging() {
	l.httpLogging.Store(true)
}

func (l *SlogLogger) DisableHTTPLogging() {
	l.httpLogging.Store(false)
}

// IsHTTPLoggingEnabled reports whether chi request logging is switched on
func (l *SlogLogger) IsHTTPLoggingEnabled() bool {
	return l.httpLogging.Load()
}

// Nop discards everything. Used by tests and by callers that pass a nil logger.
type Nop struct{}

func (Nop) Debug(msg string, args ...any) {}
func (Nop) Info(msg string, args ...any)  {}
func (Nop) Warn(msg string, args ...any)  {}
func (Nop) Error(msg string, args ...any) {}
func (n Nop) With(args ...any) Logger     { return n }
func (Nop) SetLevel(level slog.Level)     {}
func (Nop) GetLevel() slog.Level          { return slog.LevelInfo }
func (Nop) EnableHTTPLogging()            {}
func (Nop) DisableHTTPLogging()           {}
func (Nop) IsHTTPLoggingEnabled() bool    { return false }

var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = Nop{}
)
