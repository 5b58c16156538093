// Package logging provides the structured, component-scoped logger used
// across talky. It is a thin layer over log/slog with context-first methods.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
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

// ParseLevel parses debug, info, warn (or warning) and error, ignoring case.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// TalkyLogger implements Logger on top of slog
type TalkyLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	fields    []slog.Attr
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *LoggerConfig) *TalkyLogger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &TalkyLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *TalkyLogger {
	return NewLogger(&LoggerConfig{Level: LevelError, Output: io.Discard})
}

// Debug logs a debug message
func (l *TalkyLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	if l.level > LevelDebug {
		return
	}
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

// Info logs an info message
func (l *TalkyLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

// Warn logs a warning message
func (l *TalkyLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	if l.level > LevelWarn {
		return
	}
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

// Error logs an error message
func (l *TalkyLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// With creates a new logger with additional fields
func (l *TalkyLogger) With(fields ...interface{}) Logger {
	merged := make([]slog.Attr, 0, len(l.fields)+len(fields)/2)
	merged = append(merged, l.fields...)
	merged = append(merged, toAttrs(fields)...)

	return &TalkyLogger{
		logger:    l.logger,
		level:     l.level,
		component: l.component,
		fields:    merged,
	}
}

// WithComponent creates a new logger with component context
func (l *TalkyLogger) WithComponent(component string) Logger {
	return &TalkyLogger{
		logger:    l.logger,
		level:     l.level,
		component: component,
		fields:    l.fields,
	}
}

// StdLogger adapts the logger for APIs that want a *log.Logger, such as
// http.Server.ErrorLog.
func (l *TalkyLogger) StdLogger() *log.Logger {
	handler := l.logger.Handler()
	if l.component != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("component", l.component)})
	}
	return slog.NewLogLogger(handler, slog.LevelError)
}

// log is the internal logging method
func (l *TalkyLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)/2+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, l.fields...)
	attrs = append(attrs, toAttrs(fields)...)

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)

	_ = l.logger.Handler().Handle(ctx, record)
}

// toAttrs pairs up alternating keys and values; non-string keys and a
// dangling key are dropped.
func toAttrs(fields []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}
	return attrs
}

// PerfLogger tracks how long an operation takes
type PerfLogger struct {
	Logger
	startTime time.Time
	operation string
}

// StartOperation begins timing operation on logger.
func StartOperation(logger Logger, operation string) *PerfLogger {
	return &PerfLogger{
		Logger:    logger.With("operation", operation),
		startTime: time.Now(),
		operation: operation,
	}
}

// StartOperation begins performance tracking
func (l *TalkyLogger) StartOperation(operation string) *PerfLogger {
	return StartOperation(l, operation)
}

// Elapsed returns the time since the operation started.
func (p *PerfLogger) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

// End completes performance tracking and logs the duration
func (p *PerfLogger) End(ctx context.Context, fields ...interface{}) {
	duration := p.Elapsed()
	p.Info(ctx, "Operation completed", append(fields,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String(),
	)...)
}

// EndWithError completes performance tracking and logs an error
func (p *PerfLogger) EndWithError(ctx context.Context, err error, fields ...interface{}) {
	duration := p.Elapsed()
	p.Error(ctx, err, "Operation failed", append(fields,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String(),
	)...)
}
