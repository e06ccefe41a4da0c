package utils

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogHandlerLevels(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"error": slog.LevelError,
		"warn":  slog.LevelWarn,
		"info":  slog.LevelInfo,
		"debug": slog.LevelDebug,
	} {
		handler, file, err := NewLogHandler(level, "", slog.HandlerOptions{})
		require.NoError(t, err, level)
		assert.Nil(t, file)
		assert.True(t, handler.Enabled(context.Background(), want), level)
		assert.False(t, handler.Enabled(context.Background(), want-1), level)
	}
}

func TestNewLogHandlerNone(t *testing.T) {
	handler, file, err := NewLogHandler("none", "", slog.HandlerOptions{})
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.NotNil(t, handler)
}

func TestNewLogHandlerUnknownLevel(t *testing.T) {
	_, _, err := NewLogHandler("verbose", "", slog.HandlerOptions{})
	assert.ErrorIs(t, err, ErrUnknownLogLevel)
}

func TestNewLogHandlerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.log")
	handler, file, err := NewLogHandler("info", path, slog.HandlerOptions{})
	require.NoError(t, err)
	require.NotNil(t, file)

	slog.New(handler).Info("device listed", "device", 100)
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "device listed", record["msg"])
	assert.Equal(t, float64(100), record["device"])
}

func TestNewLogHandlerBadFile(t *testing.T) {
	_, _, err := NewLogHandler("info", filepath.Join(t.TempDir(), "missing", "harness.log"), slog.HandlerOptions{})
	assert.Error(t, err)
}

func TestSetViperDefaults(t *testing.T) {
	v := viper.New()
	SetViperDefaults(v)
	assert.Equal(t, "simulated", v.GetString("backend"))
	assert.Equal(t, "info", v.GetString("loglevel"))
	assert.Equal(t, "HarnessAggregateDevice", v.GetString("aggregate.name"))
	assert.Equal(t, "localhost:8089", v.GetString("feed.address"))
}
