// Package logger is the small logging seam shared by credflow components.
// Packages take a Logger value instead of writing to a global, so the CLI
// can wire an environment-gated logger while tests capture output in memory.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level identifies the severity of a log message.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger is the interface credflow components log through.
// Methods take a Printf-style format string.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through the standard log package. Debug output is
// suppressed unless CREDFLOW_DEBUG is set; the env var is read on every
// call so it can be toggled mid-run (and by t.Setenv in tests).
type envLogger struct {
	prefix string
}

// NewEnvLogger returns a Logger whose messages carry the given prefix,
// e.g. "[prompt]" or "[connect]". Debug is gated on CREDFLOW_DEBUG.
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) emit(tag, format string, args ...interface{}) {
	if l.prefix != "" {
		format = l.prefix + " " + tag + format
	} else {
		format = tag + format
	}
	log.Printf(format, args...)
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if os.Getenv("CREDFLOW_DEBUG") == "" {
		return
	}
	l.emit("", format, args...)
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.emit("", format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.emit("WARN: ", format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.emit("ERROR: ", format, args...)
}

type noopLogger struct{}

// Noop returns a Logger that discards everything.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Info(format string, args ...interface{})  {}
func (noopLogger) Warn(format string, args ...interface{})  {}
func (noopLogger) Error(format string, args ...interface{}) {}

// LogMessage is one captured entry in a BufferLogger.
type LogMessage struct {
	Level   Level
	Message string
}

// BufferLogger captures messages for test assertions. It is safe for use
// from multiple goroutines; prompt surfaces log from spawned goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger returns an empty capturing logger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) record(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.record(LevelDebug, format, args...)
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.record(LevelInfo, format, args...)
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.record(LevelWarn, format, args...)
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.record(LevelError, format, args...)
}

// Entries returns a copy of the captured messages in order.
func (l *BufferLogger) Entries() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel reports whether any message was captured at the given level.
func (l *BufferLogger) HasLevel(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear drops all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}
