package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// LogLevel represents the severity of a log message
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	SILENT // No logging
)

var (
	levelNames = map[LogLevel]string{
		DEBUG:  "DEBUG",
		INFO:   "INFO",
		WARN:   "WARN",
		ERROR:  "ERROR",
		SILENT: "SILENT",
	}

	levelColors = map[LogLevel]string{
		DEBUG: "\033[36m", // Cyan
		INFO:  "\033[32m", // Green
		WARN:  "\033[33m", // Yellow
		ERROR: "\033[31m", // Red
	}

	resetColor = "\033[0m"
)

// Logger writes leveled, module-tagged lines. Sessions log from many
// goroutines at once, so the level is atomic and writes are serialized by
// the underlying log.Logger.
type Logger struct {
	level    atomic.Int32
	out      *log.Logger
	useColor bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the global logger (call once at startup)
func Init(level LogLevel, output io.Writer, useColor bool) {
	once.Do(func() {
		defaultLogger = New(level, output, useColor)
	})
}

// New creates a new Logger instance
func New(level LogLevel, output io.Writer, useColor bool) *Logger {
	if output == nil {
		output = os.Stderr
	}

	l := &Logger{
		out:      log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		useColor: useColor,
	}
	l.level.Store(int32(level))
	return l
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	return level < SILENT && level >= l.GetLevel()
}

func (l *Logger) log(level LogLevel, module string, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if l.useColor {
		prefix = levelColors[level] + prefix + resetColor
	}
	if module != "" {
		prefix += " [" + module + "]"
	}

	l.out.Printf("%s %s", prefix, fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(module string, format string, args ...interface{}) {
	l.log(DEBUG, module, format, args...)
}

// Info logs an info message
func (l *Logger) Info(module string, format string, args ...interface{}) {
	l.log(INFO, module, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(module string, format string, args ...interface{}) {
	l.log(WARN, module, format, args...)
}

// Error logs an error message
func (l *Logger) Error(module string, format string, args ...interface{}) {
	l.log(ERROR, module, format, args...)
}

// Module binds a module tag to the logger
func (l *Logger) Module(name string) *Module {
	return &Module{l: l, name: name}
}

// Module is a logger handle with a fixed module tag. A nil *Module or one
// bound to a nil *Logger falls back to the global logger.
type Module struct {
	l    *Logger
	name string
}

// Named returns a handle for module that writes through the global logger
func Named(name string) *Module {
	return &Module{name: name}
}

func (m *Module) target() *Logger {
	if m != nil && m.l != nil {
		return m.l
	}
	return defaultLogger
}

func (m *Module) logf(level LogLevel, format string, args ...interface{}) {
	l := m.target()
	if l == nil {
		return
	}
	name := ""
	if m != nil {
		name = m.name
	}
	l.log(level, name, format, args...)
}

// Debug logs a debug message under the module tag
func (m *Module) Debug(format string, args ...interface{}) { m.logf(DEBUG, format, args...) }

// Info logs an info message under the module tag
func (m *Module) Info(format string, args ...interface{}) { m.logf(INFO, format, args...) }

// Warn logs a warning message under the module tag
func (m *Module) Warn(format string, args ...interface{}) { m.logf(WARN, format, args...) }

// Error logs an error message under the module tag
func (m *Module) Error(format string, args ...interface{}) { m.logf(ERROR, format, args...) }

// Global logger functions (use default logger)

// SetLevel sets the global log level
func SetLevel(level LogLevel) {
	if defaultLogger != nil {
		defaultLogger.SetLevel(level)
	}
}

// GetLevel returns the global log level
func GetLevel() LogLevel {
	if defaultLogger != nil {
		return defaultLogger.GetLevel()
	}
	return INFO
}

// Debug logs a debug message using the global logger
func Debug(module string, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debug(module, format, args...)
	}
}

// Info logs an info message using the global logger
func Info(module string, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Info(module, format, args...)
	}
}

// Warn logs a warning message using the global logger
func Warn(module string, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warn(module, format, args...)
	}
}

// Error logs an error message using the global logger
func Error(module string, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Error(module, format, args...)
	}
}

// ParseLevel parses a log level string
func ParseLevel(s string) (LogLevel, error) {
	switch s {
	case "debug", "DEBUG":
		return DEBUG, nil
	case "info", "INFO":
		return INFO, nil
	case "warn", "WARN", "warning", "WARNING":
		return WARN, nil
	case "error", "ERROR":
		return ERROR, nil
	case "silent", "SILENT", "none", "NONE":
		return SILENT, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s", s)
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
