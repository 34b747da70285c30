package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format represents the log output format.
type Format string

const (
	// FormatConsole outputs human-readable console logs (default).
	FormatConsole Format = "console"
	// FormatJSON outputs one JSON object per line.
	FormatJSON Format = "json"
)

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum level to emit.
	Level Level

	// Format selects the output formatter.
	Format Format

	// EnableColors colorizes console output.
	EnableColors bool

	// TimeFormat is the timestamp layout (defaults to RFC3339).
	TimeFormat string

	// Output is where log lines are written (defaults to os.Stdout).
	Output io.Writer
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatConsole,
		EnableColors: true,
		TimeFormat:   time.RFC3339,
		Output:       os.Stdout,
	}
}

// LoadFromEnv builds a configuration from LOG_LEVEL, LOG_FORMAT and LOG_COLOR.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}

	if format := os.Getenv("LOG_FORMAT"); strings.ToLower(format) == "json" {
		config.Format = FormatJSON
	}

	if color := os.Getenv("LOG_COLOR"); color != "" {
		config.EnableColors = strings.ToLower(color) == "true" || color == "1"
	}

	return config
}
