// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides redis connection settings shared by the leadership
// slot, the message event stream and the asynq backend.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// AccountConfig identifies the outreach account this instance serves.
// The account handle namespaces the leadership slot and the event stream.
type AccountConfig interface {
	GetAccountHandle() string
}

// ClassifierConfig provides settings for the trait classification service.
type ClassifierConfig interface {
	GetClassifierAPIKey() string
	GetClassifierBaseURL() string
	GetClassifierModel() string
	GetClassifierTimeout() time.Duration
	GetClassifierRequestsPerMinute() int
	IsClassifierEnabled() bool
}

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	RedisURL                    string
	RedisTLSInsecure            bool
	JWTAccessSecret             string
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	AccountHandle               string
	ClassifierAPIKey            string
	ClassifierBaseURL           string
	ClassifierModel             string
	ClassifierTimeout           time.Duration
	ClassifierRequestsPerMinute int
	AsynqQueueName              string
	AsynqConcurrency            int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// AccountConfig implementation
func (c *Config) GetAccountHandle() string { return c.AccountHandle }

// ClassifierConfig implementation
func (c *Config) GetClassifierAPIKey() string         { return c.ClassifierAPIKey }
func (c *Config) GetClassifierBaseURL() string        { return c.ClassifierBaseURL }
func (c *Config) GetClassifierModel() string          { return c.ClassifierModel }
func (c *Config) GetClassifierTimeout() time.Duration { return c.ClassifierTimeout }
func (c *Config) GetClassifierRequestsPerMinute() int { return c.ClassifierRequestsPerMinute }
func (c *Config) IsClassifierEnabled() bool           { return c.ClassifierAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		RedisURL:                    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		JWTAccessSecret:             getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AccountHandle:               getEnv("ACCOUNT_HANDLE", ""),
		ClassifierAPIKey:            getEnv("CLASSIFIER_API_KEY", ""),
		ClassifierBaseURL:           getEnv("CLASSIFIER_BASE_URL", "https://api.moonshot.ai/v1"),
		ClassifierModel:             getEnv("CLASSIFIER_MODEL", "kimi-k2-turbo-preview"),
		ClassifierTimeout:           mustDuration(getEnv("CLASSIFIER_TIMEOUT", "45s")),
		ClassifierRequestsPerMinute: mustInt(getEnv("CLASSIFIER_REQUESTS_PER_MINUTE", "30")),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE_NAME", "outreach"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AccountHandle == "" {
		return nil, fmt.Errorf("ACCOUNT_HANDLE is required")
	}
	if !strings.EqualFold(cfg.Env, "development") && cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func mustDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

func mustInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
