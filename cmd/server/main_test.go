package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arcanetable/encounter-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		for _, format := range []string{"json", "console"} {
			logger, err := initLogger(config.LoggingConfig{Level: tt.level, Format: format})
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want), "%s/%s", tt.level, format)
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1), "%s/%s", tt.level, format)
			}
		}
	}
}

func TestInitLoggerWritesToOutputPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, err := initLogger(config.LoggingConfig{Level: "info", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("encounter started", zap.String("encounter_id", "enc-1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "encounter started", entry["msg"])
	assert.Equal(t, "enc-1", entry["encounter_id"])
	assert.Equal(t, "encounter-server", entry["service"])
	assert.Equal(t, version, entry["version"])
}
