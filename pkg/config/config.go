package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration, loaded from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Comms    CommsConfig
	OTP      OTPConfig
	Upload   UploadConfig
}

// Load builds the full configuration from environment variables.
func Load() *Config {
	return &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Comms:    loadCommsConfig(),
		OTP:      loadOTPConfig(),
		Upload:   loadUploadConfig(),
	}
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        string
	CORSOrigins string
	BodyLimit   int
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		BodyLimit:   getEnvInt("BODY_LIMIT_MB", 10) * 1024 * 1024,
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
