// Package config provides configuration management for the Relay standalone server.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the Relay server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Relay    RelayConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "relay_")
}

// RelayConfig holds relay-specific configuration.
type RelayConfig struct {
	BatchSize           int     // Sweeper batch size
	SweepInterval       int     // Sweeper interval in seconds
	DeliveryTimeout     int     // Per-attempt delivery timeout in seconds
	RateLimitPerMinute  int     // Publish requests allowed per client per minute
	Gateway             string  // Delivery gateway: "mock" or "webhook"
	WebhookURL          string  // Target URL when Gateway is "webhook"
	MockFailureRate     float64 // Failure rate of the mock gateway (0..1)
	EnableNotifications bool    // Enable notification service
	SeedDemoClient      bool    // Create a demo client on startup
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "relay"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "relay"),
			Prefix:   getEnv("DB_PREFIX", "relay_"),
		},
		Relay: RelayConfig{
			BatchSize:           getEnvInt("RELAY_BATCH_SIZE", 100),
			SweepInterval:       getEnvInt("RELAY_SWEEP_INTERVAL", 5),
			DeliveryTimeout:     getEnvInt("RELAY_DELIVERY_TIMEOUT", 10),
			RateLimitPerMinute:  getEnvInt("RELAY_RATE_LIMIT", 60),
			Gateway:             getEnv("RELAY_GATEWAY", "mock"),
			WebhookURL:          getEnv("RELAY_WEBHOOK_URL", ""),
			MockFailureRate:     getEnvFloat("RELAY_MOCK_FAILURE_RATE", 0.5),
			EnableNotifications: getEnvBool("RELAY_ENABLE_NOTIFICATIONS", true),
			SeedDemoClient:      getEnvBool("RELAY_SEED_DEMO_CLIENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" && strings.ToLower(cfg.Database.Driver) != "sqlite3" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	if strings.ToLower(cfg.Relay.Gateway) == "webhook" && cfg.Relay.WebhookURL == "" {
		return nil, fmt.Errorf("RELAY_WEBHOOK_URL environment variable is required when RELAY_GATEWAY=webhook")
	}

	return cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves environment variable as float or returns default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves environment variable as boolean or returns default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
