// Package log provides a structured logging wrapper around logrus.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// componentKey is the field carrying the name given to Named
const componentKey = "component"

// Logger wraps a logrus entry for dependency injection.
// Loggers derived with Named share the root logger, so SetLevel applies to all of them.
type Logger struct {
	root  *logrus.Logger
	entry *logrus.Entry
}

// New creates a logger writing text lines to stdout.
// The level comes from LOG_LEVEL and defaults to info.
func New() *Logger {
	return NewWithOutput(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithOutput creates a logger writing to w at the given level
func NewWithOutput(w io.Writer, level string) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     w == os.Stdout,
	})
	l.SetLevel(logrus.InfoLevel)

	logger := &Logger{root: l, entry: logrus.NewEntry(l)}
	logger.SetLevel(level)
	return logger
}

// Discard returns a logger that drops everything, for tests and disabled components
func Discard() *Logger {
	return NewWithOutput(io.Discard, "panic")
}

// Named returns a child logger tagging every line with the component name
func (l *Logger) Named(component string) *Logger {
	return &Logger{root: l.root, entry: l.entry.WithField(componentKey, component)}
}

// SetLevel changes the level at runtime. Unknown names are ignored.
func (l *Logger) SetLevel(level string) {
	switch level {
	case "trace":
		l.root.SetLevel(logrus.TraceLevel)
	case "debug":
		l.root.SetLevel(logrus.DebugLevel)
	case "info":
		l.root.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		l.root.SetLevel(logrus.WarnLevel)
	case "error":
		l.root.SetLevel(logrus.ErrorLevel)
	case "fatal":
		l.root.SetLevel(logrus.FatalLevel)
	case "panic":
		l.root.SetLevel(logrus.PanicLevel)
	}
}

// IsLevelEnabled reports whether lines at level would be written
func (l *Logger) IsLevelEnabled(level logrus.Level) bool {
	return l.root.IsLevelEnabled(level)
}

// GetLogrus returns the underlying logrus instance
func (l *Logger) GetLogrus() *logrus.Logger {
	return l.root
}

// Trace logs trace-level messages
func (l *Logger) Trace(format string, v ...interface{}) {
	l.entry.Tracef(format, v...)
}

// TraceWithFields logs a trace message with structured fields
func (l *Logger) TraceWithFields(fields logrus.Fields, format string, v ...interface{}) {
	l.entry.WithFields(fields).Tracef(format, v...)
}

// Debug logs debug messages
func (l *Logger) Debug(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(fields logrus.Fields, format string, v ...interface{}) {
	l.entry.WithFields(fields).Debugf(format, v...)
}

// Info logs informational messages
func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(fields logrus.Fields, format string, v ...interface{}) {
	l.entry.WithFields(fields).Infof(format, v...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(fields logrus.Fields, format string, v ...interface{}) {
	l.entry.WithFields(fields).Warnf(format, v...)
}

// Error logs error messages
func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(fields logrus.Fields, format string, v ...interface{}) {
	l.entry.WithFields(fields).Errorf(format, v...)
}

// Fatal logs an error message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.entry.Fatalf(format, v...)
}

// WithField creates an entry with one structured field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry.WithField(key, value)
}

// WithFields creates an entry with structured fields
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.entry.WithFields(fields)
}
