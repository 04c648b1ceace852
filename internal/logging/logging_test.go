package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLevel проверяет разбор уровня логирования.
func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

// TestNewJSON проверяет JSON-вывод вне локального окружения.
func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, "info")

	logger.Debug("hidden")
	logger.Info("bill created", slog.String("owner", "a@example.com"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bill created", entry["msg"])
	assert.Equal(t, "a@example.com", entry["owner"])
}

// TestNewLocal проверяет текстовый вывод tint.
func TestNewLocal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "debug")

	logger.Debug("recurrence pass")

	assert.Contains(t, buf.String(), "recurrence pass")
	assert.False(t, json.Valid(buf.Bytes()))
}
