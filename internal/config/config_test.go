package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RegistryBackend != RegistryRedis {
		t.Errorf("RegistryBackend = %q, want %q", cfg.RegistryBackend, RegistryRedis)
	}
	if cfg.NumWorkers != 50 {
		t.Errorf("NumWorkers = %d, want 50", cfg.NumWorkers)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.CBCooldown != 30*time.Second {
		t.Errorf("CBCooldown = %v, want 30s", cfg.CBCooldown)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.DeliveryLogEnabled() {
		t.Error("delivery log should be disabled without DATABASE_URL")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://hub@localhost/hub")
	t.Setenv("REGISTRY_BACKEND", "MEMORY")
	t.Setenv("NUM_WORKERS", "4")
	t.Setenv("HTTP_CLIENT_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RegistryBackend != RegistryMemory {
		t.Errorf("RegistryBackend = %q, want %q", cfg.RegistryBackend, RegistryMemory)
	}
	if cfg.NumWorkers != 4 {
		t.Errorf("NumWorkers = %d, want 4", cfg.NumWorkers)
	}
	if cfg.HTTPClientTimeout != 3*time.Second {
		t.Errorf("HTTPClientTimeout = %v, want 3s", cfg.HTTPClientTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if !cfg.DeliveryLogEnabled() {
		t.Error("delivery log should be enabled with DATABASE_URL")
	}
}

func TestLoad_RequiresRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
	if !strings.Contains(err.Error(), "RedisURL") {
		t.Errorf("error should name RedisURL, got %q", err)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REGISTRY_BACKEND", "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown registry backend")
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("NUM_WORKERS", "many")

	if got := getEnvInt("NUM_WORKERS", 7); got != 7 {
		t.Errorf("got %d, want fallback 7", got)
	}
}
