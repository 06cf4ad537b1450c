// Package logger provides a small leveled logging interface for hostwatch
// components. Packages log through Logger so the polling core is not coupled
// to a concrete logging implementation.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// DebugEnv enables debug output when set to any non-empty value.
const DebugEnv = "HOSTWATCH_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through the standard log package.
// Debug messages are only printed when HOSTWATCH_DEBUG is set or verbose is on.
type envLogger struct {
	prefix  string
	verbose bool
}

// NewEnvLogger creates a logger that respects the HOSTWATCH_DEBUG environment variable.
// The prefix is prepended to all log messages (e.g., "[monitor]" or "[remote]").
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

// NewVerboseLogger creates a logger that always prints debug messages.
func NewVerboseLogger(prefix string) Logger {
	return &envLogger{prefix: prefix, verbose: true}
}

func (l *envLogger) debugEnabled() bool {
	return l.verbose || os.Getenv(DebugEnv) != ""
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if l.debugEnabled() {
		log.Printf(l.prefix+" DEBUG: "+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

// With returns a logger that prepends prefix to every message of l.
// Unknown Logger implementations are wrapped rather than copied.
func With(l Logger, prefix string) Logger {
	if l == nil {
		return Noop()
	}
	if el, ok := l.(*envLogger); ok {
		p := prefix
		if el.prefix != "" {
			p = el.prefix + " " + prefix
		}
		return &envLogger{prefix: p, verbose: el.verbose}
	}
	return &prefixLogger{inner: l, prefix: prefix}
}

type prefixLogger struct {
	inner  Logger
	prefix string
}

func (l *prefixLogger) Debug(format string, args ...interface{}) {
	l.inner.Debug(l.prefix+" "+format, args...)
}

func (l *prefixLogger) Info(format string, args ...interface{}) {
	l.inner.Info(l.prefix+" "+format, args...)
}

func (l *prefixLogger) Warn(format string, args ...interface{}) {
	l.inner.Warn(l.prefix+" "+format, args...)
}

func (l *prefixLogger) Error(format string, args ...interface{}) {
	l.inner.Error(l.prefix+" "+format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// It is safe for concurrent use since checks log from many goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// Messages returns a copy of the captured messages.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}
