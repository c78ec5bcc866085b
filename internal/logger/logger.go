// Package logger provides the bridge's leveled logger.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// EnvLevel names the environment variable read by LevelFromEnv.
const EnvLevel = "CIVIC_LOG_LEVEL"

// Level represents a log level.
type Level int

const (
	// LevelDebug is the most verbose log level.
	LevelDebug Level = iota
	// LevelInfo is the default log level.
	LevelInfo
	// LevelWarn is for degraded but recoverable conditions.
	LevelWarn
	// LevelError is for failed operations.
	LevelError
)

// String returns the string representation of a log level.
func (l Level) String() string {
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

// Logger writes timestamped, leveled lines to an output and an optional file.
type Logger struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	file   *os.File
	now    func() time.Time
}

// New creates a logger writing to w at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, output: w, now: time.Now}
}

var defaultLogger = New(os.Stderr, LevelInfo)

// Default returns the process logger used by the package-level functions.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput replaces the primary output.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetLogFile additionally appends every emitted line to the file at path.
func (l *Logger) SetLogFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = f
	return nil
}

// Close closes the log file if one is open.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	// 2006-01-02T15:04:05.000Z LEVEL message
	timestamp := l.now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	line := fmt.Sprintf("%s %s %s\n", timestamp, level.String(), msg)

	io.WriteString(l.output, line)
	if l.file != nil {
		io.WriteString(l.file, line)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) { l.log(LevelWarn, format, args...) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Writer returns an io.Writer that logs each written line at level.
// Used to route third-party loggers (gin) through this logger.
func (l *Logger) Writer(level Level) io.Writer {
	return &lineWriter{logger: l, level: level}
}

type lineWriter struct {
	logger *Logger
	level  Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		w.logger.log(w.level, "%s", line)
	}
	return len(p), nil
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level Level) { defaultLogger.SetLevel(level) }

// GetLevel returns the current log level of the default logger.
func GetLevel() Level { return defaultLogger.Level() }

// SetOutput sets the output writer for the default logger.
func SetOutput(w io.Writer) { defaultLogger.SetOutput(w) }

// SetLogFile opens a log file for the default logger.
func SetLogFile(path string) error { return defaultLogger.SetLogFile(path) }

// Close closes the default logger's log file.
func Close() { defaultLogger.Close() }

// Debug logs at debug level.
func Debug(format string, args ...interface{}) { defaultLogger.log(LevelDebug, format, args...) }

// Info logs at info level.
func Info(format string, args ...interface{}) { defaultLogger.log(LevelInfo, format, args...) }

// Warn logs at warn level.
func Warn(format string, args ...interface{}) { defaultLogger.log(LevelWarn, format, args...) }

// Error logs at error level.
func Error(format string, args ...interface{}) { defaultLogger.log(LevelError, format, args...) }

// ParseLevel converts a string to a Level.
// Accepts: debug, info, warn, error (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: valid levels are debug, info, warn, error", s)
	}
}

// LevelFromEnv reads CIVIC_LOG_LEVEL through lookup. It returns fallback
// when the variable is unset and an error when it is set but invalid.
func LevelFromEnv(lookup func(string) (string, bool), fallback Level) (Level, error) {
	value, ok := lookup(EnvLevel)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	level, err := ParseLevel(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", EnvLevel, err)
	}
	return level, nil
}
