package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/solarpower/internal/infrastructure/config"
)

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		logger := New(config.LoggingConfig{Level: "info", Format: format, Output: "stderr"}, "1.0.0")
		require.NotNil(t, logger)
		assert.NoError(t, logger.Close())
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "solarpower.log")
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File: config.FileLoggingConfig{
			Path:       path,
			MaxSize:    1,
			MaxBackups: 1,
			MaxAge:     1,
		},
	}

	logger := New(cfg, "1.0.0")
	logger.Info("written to file", "port", 9195)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "solarpower", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestVerbosityLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  string
	}{
		{-1, "error"},
		{0, "error"},
		{1, "info"},
		{2, "info"},
		{3, "debug"},
		{5, "debug"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, VerbosityLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestLogger_With(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "1.0.0")
	child := logger.With("component", "directory")

	require.NotNil(t, child)
	assert.NotSame(t, logger, child)
}
