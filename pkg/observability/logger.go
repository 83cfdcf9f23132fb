package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLogLevel converts a level name to a LogLevel, defaulting to InfoLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger writes JSON lines through log/slog. Fields added with WithField and
// friends are carried by the returned copy only.
type Logger struct {
	slog  *slog.Logger
	level LogLevel
}

// NewLogger creates a logger writing JSON lines to output, stdout when nil
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{slog: slog.New(handler), level: level}
}

// Level returns the minimum level the logger emits
func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), level: l.level}
}

// WithField returns a logger that adds key to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields returns a logger that adds fields to every entry, in key order
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

// WithError adds err under the "error" key; a nil err returns l unchanged
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) log(level slog.Level, message string) {
	l.slog.Log(context.Background(), level, message)
}

func (l *Logger) logf(level slog.Level, format string, args []interface{}) {
	if !l.slog.Enabled(context.Background(), level) {
		return
	}
	l.log(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(message string) { l.log(slog.LevelDebug, message) }
func (l *Logger) Info(message string)  { l.log(slog.LevelInfo, message) }
func (l *Logger) Warn(message string)  { l.log(slog.LevelWarn, message) }
func (l *Logger) Error(message string) { l.log(slog.LevelError, message) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(slog.LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(slog.LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(slog.LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(slog.LevelError, format, args) }

type ctxKey int

const (
	requestIDKey ctxKey = iota
	scanIDKey
	loggerKey
)

// WithRequestID stores the HTTP request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID stored in ctx, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithScanID stores the library scan ID in ctx
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// GetScanID returns the scan ID stored in ctx, or ""
func GetScanID(ctx context.Context) string {
	id, _ := ctx.Value(scanIDKey).(string)
	return id
}

// WithLogger stores logger in ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

var fallbackLogger = sync.OnceValue(func() *Logger {
	return NewLogger(InfoLevel, os.Stdout)
})

// GetLogger returns the logger stored in ctx, or a shared info-level stdout
// logger when there is none
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok && logger != nil {
		return logger
	}
	return fallbackLogger()
}

// FromContext returns the context logger with request_id and scan_id added
// when ctx carries them
func FromContext(ctx context.Context) *Logger {
	var args []any
	if id := GetRequestID(ctx); id != "" {
		args = append(args, "request_id", id)
	}
	if id := GetScanID(ctx); id != "" {
		args = append(args, "scan_id", id)
	}

	logger := GetLogger(ctx)
	if len(args) == 0 {
		return logger
	}
	return logger.with(args...)
}
