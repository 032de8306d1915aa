package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// verbose gates Debug and Info output process-wide. The CLI flips it from
// the --verbose flag.
var verbose atomic.Bool

// SetVerbose enables or disables Debug and Info output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// IsVerbose reports whether verbose output is enabled.
func IsVerbose() bool {
	return verbose.Load()
}

// Logger writes component-tagged log lines.
type Logger struct {
	component string
	writer    io.Writer
}

// Field is a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// New creates a logger for a component.
func New(component string) *Logger {
	return &Logger{
		component: component,
		writer:    os.Stderr,
	}
}

// WithComponent creates a logger with a different component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		writer:    l.writer,
	}
}

// Debug logs debug messages (only when verbose)
func (l *Logger) Debug(msg string, args ...interface{}) {
	if IsVerbose() {
		l.log("DEBUG", msg, args...)
	}
}

// Info logs informational messages (only when verbose)
func (l *Logger) Info(msg string, args ...interface{}) {
	if IsVerbose() {
		l.log("INFO", msg, args...)
	}
}

// Warn logs warning messages (always shown)
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, args...)
}

// Error logs error messages (always shown)
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, args...)
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if IsVerbose() {
		l.logWithFields("INFO", msg, fields, args...)
	}
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	if IsVerbose() {
		l.logWithFields("DEBUG", msg, fields, args...)
	}
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.logWithFields(level, msg, nil, args...)
}

func (l *Logger) logWithFields(level, msg string, fields []Field, args ...interface{}) {
	timestamp := time.Now().Format("15:04:05.000")
	component := l.component
	if component == "" {
		component = "main"
	}

	formattedMsg := fmt.Sprintf(msg, args...)

	var fieldsStr string
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", field.Key, field.Value))
		}
		fieldsStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
	}

	line := fmt.Sprintf("[%s] %s [%s] %s%s\n", timestamp, level, component, formattedMsg, fieldsStr)
	if _, err := fmt.Fprint(l.writer, line); err != nil {
		// nothing sensible to do when the logger itself cannot write
		_ = err
	}
}

// Helper constructors for common field types
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}
