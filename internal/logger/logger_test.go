package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{name: "gated off by default", envValue: "", expectLog: false},
		{name: "enabled with 1", envValue: "1", expectLog: true},
		{name: "any non-empty value enables", envValue: "yes", expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			if tt.envValue != "" {
				t.Setenv("CREDFLOW_DEBUG", tt.envValue)
			} else {
				os.Unsetenv("CREDFLOW_DEBUG")
			}

			l := NewEnvLogger("[test]")
			l.Debug("probing %s", "key")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] probing key")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	buf := captureLog(t)

	l := NewEnvLogger("[conn]")
	l.Info("dialing %s", "host:22")
	l.Warn("retrying")
	l.Error("gave up")

	out := buf.String()
	assert.Contains(t, out, "[conn] dialing host:22")
	assert.Contains(t, out, "[conn] WARN: retrying")
	assert.Contains(t, out, "[conn] ERROR: gave up")
}

func TestEnvLogger_NoPrefix(t *testing.T) {
	buf := captureLog(t)

	l := NewEnvLogger("")
	l.Info("bare message")

	assert.Contains(t, buf.String(), "bare message")
	assert.NotContains(t, buf.String(), "  bare")
}

func TestNoopLogger(t *testing.T) {
	buf := captureLog(t)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	entries := l.Entries()
	assert.Len(t, entries, 4)
	assert.Equal(t, LogMessage{Level: LevelDebug, Message: "debug 1"}, entries[0])
	assert.Equal(t, LogMessage{Level: LevelError, Message: "error 4"}, entries[3])

	assert.True(t, l.HasLevel(LevelWarn))
	assert.False(t, l.HasLevel("fatal"))

	l.Clear()
	assert.Empty(t, l.Entries())
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Info("worker %d", n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Entries(), 8)
	assert.True(t, l.HasLevel(LevelInfo))
}
