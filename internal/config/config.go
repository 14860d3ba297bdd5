package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Priya8975/notification-hub/internal/validation"
)

// Registry backends.
const (
	RegistryRedis  = "redis"
	RegistryMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port            string `validate:"required,numeric"`
	DatabaseURL     string
	RedisURL        string `validate:"required"`
	RegistryBackend string `validate:"oneof=redis memory"`
	LogLevel        slog.Level

	NumWorkers   int           `validate:"gt=0"`
	PollInterval time.Duration `validate:"gt=0"`
	MaxAttempts  int           `validate:"gt=0"`

	HTTPClientTimeout time.Duration `validate:"gt=0"`
	HTTPRetryCount    int           `validate:"gte=0"`
	SigningSecret     string

	RateLimitPerSecond int           `validate:"gte=0"`
	CBFailureThreshold int           `validate:"gt=0"`
	CBCooldown         time.Duration `validate:"gt=0"`
}

// DeliveryLogEnabled reports whether a PostgreSQL delivery log is configured.
func (c *Config) DeliveryLogEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		RegistryBackend: strings.ToLower(getEnv("REGISTRY_BACKEND", RegistryRedis)),
		LogLevel:        getEnvLevel("LOG_LEVEL", slog.LevelInfo),

		NumWorkers:   getEnvInt("NUM_WORKERS", 50),
		PollInterval: getEnvDuration("POLL_INTERVAL", 100*time.Millisecond),
		MaxAttempts:  getEnvInt("MAX_ATTEMPTS", 5),

		HTTPClientTimeout: getEnvDuration("HTTP_CLIENT_TIMEOUT", 10*time.Second),
		HTTPRetryCount:    getEnvInt("HTTP_RETRY_COUNT", 2),
		SigningSecret:     getEnv("WEBHOOK_SIGNING_SECRET", ""),

		RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 0),
		CBFailureThreshold: getEnvInt("CB_FAILURE_THRESHOLD", 5),
		CBCooldown:         getEnvDuration("CB_COOLDOWN", 30*time.Second),
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	if val := os.Getenv(key); val != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(val)); err == nil {
			return lvl
		}
	}
	return fallback
}
