// Package config loads girs settings from GIRS_* environment variables and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	// Backend
	APIURL         string        `mapstructure:"API_URL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	// Branding shown by the chat UI
	ProjectName      string `mapstructure:"PROJECT_NAME"`
	AgentName        string `mapstructure:"AGENT_NAME"`
	AgentDescription string `mapstructure:"AGENT_DESCRIPTION"`
	AgentAvatarURL   string `mapstructure:"AGENT_AVATAR_URL"`

	// Session token file
	SessionFile string `mapstructure:"SESSION_FILE"`

	// Logging
	LogFile     string     `mapstructure:"LOG_FILE"`
	LogLevelRaw string     `mapstructure:"LOG_LEVEL"`
	LogLevel    slog.Level `mapstructure:"-"`
}

// EnvPrefix prefixes every environment variable, e.g. GIRS_API_URL.
const EnvPrefix = "GIRS"

// Dir returns the per-user girs directory (session file, .env).
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "girs")
	}
	return filepath.Join(dir, "girs")
}

// Load reads configuration from the environment and from a .env file in the
// working directory or in Dir(). The environment wins over the file.
func Load() (*Config, error) {
	return load(viper.New(), ".", Dir())
}

func load(v *viper.Viper, searchPaths ...string) (*Config, error) {
	v.SetDefault("API_URL", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "2m")
	v.SetDefault("PROJECT_NAME", "GIRS")
	v.SetDefault("AGENT_NAME", "GIRS")
	v.SetDefault("AGENT_DESCRIPTION", "How can I help you today?")
	v.SetDefault("AGENT_AVATAR_URL", "")
	v.SetDefault("SESSION_FILE", filepath.Join(Dir(), "session.yaml"))
	v.SetDefault("LOG_FILE", filepath.Join(os.TempDir(), "girs.log"))
	v.SetDefault("LOG_LEVEL", "INFO")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	return &cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
