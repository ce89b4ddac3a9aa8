package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Debug("Session-0", "dropped %d", 1)
	l.Info("Session-0", "dropped %d", 2)
	l.Warn("Session-0", "kept %d", 3)
	l.Error("Session-0", "kept %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[WARN] [Session-0] kept 3")
	assert.Contains(t, out, "[ERROR] [Session-0] kept 4")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestLoggerSilent(t *testing.T) {
	var buf bytes.Buffer
	l := New(SILENT, &buf, false)

	l.Error("Main", "nothing")
	assert.Empty(t, buf.String())
	assert.False(t, l.Enabled(ERROR))

	l.SetLevel(DEBUG)
	assert.Equal(t, DEBUG, l.GetLevel())
	assert.True(t, l.Enabled(DEBUG))
}

func TestLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, &buf, true)

	l.Info("", "hello")
	assert.Contains(t, buf.String(), "\033[32m[INFO]\033[0m hello")
}

func TestModuleHandle(t *testing.T) {
	var buf bytes.Buffer
	m := New(DEBUG, &buf, false).Module("Workfile")

	m.Debug("verifying %s", "a")
	m.Info("wrote %d bytes", 10)

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] [Workfile] verifying a")
	assert.Contains(t, out, "[INFO] [Workfile] wrote 10 bytes")
}

func TestNilModuleDoesNotPanic(t *testing.T) {
	var m *Module
	assert.NotPanics(t, func() { m.Info("ignored") })
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"none":    SILENT,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
