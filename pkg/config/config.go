// Package config loads the process configuration from environment
// variables. The DB_* names match the variables the deployment already
// exports for the database; everything else lives under the NAV_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guluwater/navadmin/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig

	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// SeedFile optionally overrides the built-in seed dataset (YAML).
	SeedFile string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds the relational backend connection settings.
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int
	ConnectTimeout time.Duration
}

// Configured reports whether the environment names a database at all. An
// unconfigured database selects the in-memory fallback without an attempt.
func (d DatabaseConfig) Configured() bool {
	return d.Host != "" && d.Name != ""
}

// RedisConfig holds the optional stats cache backend settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// CacheConfig holds stats cache tuning.
type CacheConfig struct {
	TTL       time.Duration
	LocalSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("NAV_HOST", "0.0.0.0"),
			Port:            getEnv("NAV_PORT", "8080"),
			ReadTimeout:     getEnvDuration("NAV_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("NAV_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("NAV_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("NAV_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("NAV_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", ""),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "navadmin"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", ""),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxConns:       getEnvInt("DB_MAX_CONNS", 10),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("NAV_REDIS_ADDR", ""),
			Password: getEnv("NAV_REDIS_PASSWORD", ""),
			DB:       getEnvInt("NAV_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTL:       getEnvDuration("NAV_CACHE_TTL", 30*time.Second),
			LocalSize: getEnvInt("NAV_CACHE_LOCAL_SIZE", 64),
		},
		LogLevel:       observability.ParseLevel(getEnv("NAV_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("NAV_METRICS_ENABLED", true),
		SeedFile:       getEnv("NAV_SEED_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.Configured() {
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required when DB_HOST is set")
		}
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
