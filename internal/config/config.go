// Package config читает настройки бинарников из окружения.
//
// Перед чтением подгружается .env из рабочего каталога, если он есть.
// Переменные окружения процесса имеют приоритет над .env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/shaiso/nodeflow/internal/versioning"
	"github.com/shaiso/nodeflow/internal/worker"
)

// Config — настройки API и worker.
type Config struct {
	API      APIConfig
	Worker   WorkerConfig
	Versions versioning.Context

	// ExtensionsPath — YAML или JSON манифест расширений каталога.
	ExtensionsPath string
}

// APIConfig — настройки HTTP API.
type APIConfig struct {
	Port string

	// RateLimit — запросов в секунду на клиента, 0 — без ограничения.
	RateLimit float64

	ShutdownTimeout time.Duration
}

// WorkerConfig — настройки воркера очереди.
type WorkerConfig struct {
	Port        string
	Prefetch    int
	NodeTimeout time.Duration
	Retry       worker.RetryPolicy
}

// Load читает конфигурацию. appVersion — версия сборки, используется,
// если NODEFLOW_APP_VERSION не задан.
func Load(appVersion string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			Port:            getEnv("API_PORT", "8080"),
			RateLimit:       getEnvAsFloat("API_RATE_LIMIT", 0),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Worker: WorkerConfig{
			Port:        getEnv("WORKER_PORT", "8082"),
			Prefetch:    getEnvAsInt("WORKER_PREFETCH", 5),
			NodeTimeout: getEnvAsDuration("WORKER_NODE_TIMEOUT", 5*time.Minute),
			Retry: worker.RetryPolicy{
				MaxAttempts:  getEnvAsInt("WORKER_RETRY_ATTEMPTS", 3),
				Backoff:      getEnv("WORKER_RETRY_BACKOFF", "exponential"),
				InitialDelay: getEnvAsDuration("WORKER_RETRY_DELAY", time.Second),
				MaxDelay:     getEnvAsDuration("WORKER_RETRY_MAX_DELAY", 30*time.Second),
			},
		},
		Versions: versioning.Context{
			SDKVersion: getEnv("NODEFLOW_SDK_VERSION", versioning.DefaultNodeSDKVersion),
			AppVersion: getEnv("NODEFLOW_APP_VERSION", appVersion),
		},
		ExtensionsPath: os.Getenv("NODEFLOW_EXTENSIONS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя молча заменить умолчаниями.
func (c *Config) Validate() error {
	if c.API.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must not be negative")
	}
	if c.Worker.Prefetch <= 0 {
		return fmt.Errorf("WORKER_PREFETCH must be positive")
	}
	switch c.Worker.Retry.Backoff {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("WORKER_RETRY_BACKOFF must be fixed or exponential, got %q", c.Worker.Retry.Backoff)
	}
	if !versioning.IsSemver(c.Versions.SDKVersion) {
		return fmt.Errorf("NODEFLOW_SDK_VERSION %q is not a semver version", c.Versions.SDKVersion)
	}
	// Версия приложения может быть "dev" у локальной сборки.
	if c.Versions.AppVersion != "" && !versioning.IsSemver(c.Versions.AppVersion) {
		c.Versions.AppVersion = ""
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
