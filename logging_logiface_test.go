package reactorcore

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogifaceLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogifaceLogger(LevelDebug, &buf)

	l.Log(LogEntry{
		Level:     LevelInfo,
		Component: "reactor",
		Message:   "tick completed",
		Fields:    map[string]any{"count": 3},
	})

	out := buf.String()
	assert.Contains(t, out, "tick completed")
	assert.Contains(t, out, "reactor")
}

func TestLogifaceLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogifaceLogger(LevelWarn, &buf)

	l.Log(LogEntry{Level: LevelDebug, Message: "too quiet"})
	assert.Empty(t, buf.String())

	assert.False(t, l.IsEnabled(LevelInfo))
	assert.True(t, l.IsEnabled(LevelError))
}

func TestLogifaceLoggerIncludesError(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogifaceLogger(LevelDebug, &buf)
	l.Log(LogEntry{Level: LevelError, Message: "poll failed", Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "boom")
}
