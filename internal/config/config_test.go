package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLogLevel(tt.in); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIURL)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, "GIRS", cfg.AgentName)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, strings.HasSuffix(cfg.SessionFile, "session.yaml"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GIRS_API_URL", "https://api.example.com/")
	t.Setenv("GIRS_AGENT_NAME", "Julio")
	t.Setenv("GIRS_REQUEST_TIMEOUT", "15s")
	t.Setenv("GIRS_LOG_LEVEL", "debug")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "Julio", cfg.AgentName)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("API_URL=http://10.0.0.5:8080\nPROJECT_NAME=Universitas\n"), 0o600))
	t.Setenv("GIRS_PROJECT_NAME", "FromEnv")

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8080", cfg.APIURL)
	assert.Equal(t, "FromEnv", cfg.ProjectName, "environment wins over .env")
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelDebug, slog.LevelWarn)

	logger.Debug("request completed", "op", "list_conversations")
	logger.Warn("slow request", "op", "send_message")

	assert.NotContains(t, stderr.String(), "request completed")
	assert.Contains(t, stderr.String(), "slow request")
	assert.Contains(t, file.String(), `"msg":"request completed"`)
	assert.Contains(t, file.String(), `"op":"send_message"`)
}
