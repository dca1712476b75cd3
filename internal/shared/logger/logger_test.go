package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("creates with default config", func(t *testing.T) {
		l := New(nil)
		assert.NotNil(t, l)
		assert.NotNil(t, l.Logger)
	})

	t.Run("json output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{Level: "debug", Format: "json", Output: buf})

		l.Info("registration created", "registration_number", "MPR0123456789")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "registration created", entry["msg"])
		assert.Equal(t, "MPR0123456789", entry["registration_number"])
	})

	t.Run("text output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{Level: "info", Format: "text", Output: buf})

		l.Info("test message")
		assert.Contains(t, buf.String(), "test message")
		assert.False(t, strings.HasPrefix(buf.String(), "{"))
	})

	t.Run("filters below level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{Level: "warn", Format: "json", Output: buf})

		l.Info("hidden")
		assert.Empty(t, buf.String())
	})
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, slogLevel(tt.input).String())
		})
	}
}

func TestNewZapLogger(t *testing.T) {
	t.Run("writes json to output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		zl, err := NewZapLogger(&Config{Level: "info", Format: "json", Output: buf})
		require.NoError(t, err)

		zl.Info("payment initiated")
		require.NoError(t, zl.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "payment initiated", entry["msg"])
	})

	t.Run("respects level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		zl, err := NewZapLogger(&Config{Level: "error", Format: "json", Output: buf})
		require.NoError(t, err)

		zl.Warn("ignored")
		assert.Empty(t, buf.String())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		zl, err := NewZapLogger(&Config{Level: "loud", Format: "json", Output: buf})
		require.NoError(t, err)

		zl.Debug("hidden")
		zl.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestLogger_Context(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		l := New(&Config{Level: "info", Format: "json", Output: &bytes.Buffer{}})
		ctx := ContextWithLogger(context.Background(), l)
		assert.Equal(t, l, FromContext(ctx))
	})

	t.Run("default when missing", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf}).With("domain", "registration")
	l.Info("test")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "registration", entry["domain"])
}
