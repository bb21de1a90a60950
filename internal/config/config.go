package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Broker
	BrokerKind    string `env:"BROKER_KIND" default:"redis"` // "redis" | "nats" | "memory"
	RedisURL      string `env:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	NatsURL       string `env:"NATS_URL" default:"nats://localhost:4222"`

	// Topics
	RequestTopic      string `env:"REQUEST_TOPIC" default:"castlefs.requests"`
	ResponseTopic     string `env:"RESPONSE_TOPIC" default:"castlefs.responses"`
	NotificationTopic string `env:"NOTIFICATION_TOPIC" default:"castlefs.notify"`

	// Agent
	DataRoot   string `env:"DATA_ROOT" default:"./data"`
	StatusPort int    `env:"STATUS_PORT" default:"8090"`

	// Client
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" default:"10s"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; system environment variables still apply
	if err := godotenv.Load(".env"); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Broker
	if err := loadEnvString(&config.BrokerKind, "BROKER_KIND", "redis"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", "redis://localhost:6379"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.NatsURL, "NATS_URL", "nats://localhost:4222"); err != nil {
		return nil, err
	}

	// Topics
	if err := loadEnvString(&config.RequestTopic, "REQUEST_TOPIC", "castlefs.requests"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.ResponseTopic, "RESPONSE_TOPIC", "castlefs.responses"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.NotificationTopic, "NOTIFICATION_TOPIC", "castlefs.notify"); err != nil {
		return nil, err
	}

	// Agent
	if err := loadEnvString(&config.DataRoot, "DATA_ROOT", "./data"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.StatusPort, "STATUS_PORT", 8090); err != nil {
		return nil, err
	}

	// Client
	if err := loadEnvDuration(&config.RequestTimeout, "REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "json"); err != nil {
		return nil, err
	}

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	validBrokers := []string{"redis", "nats", "memory"}
	if !contains(validBrokers, c.BrokerKind) {
		errors = append(errors, fmt.Sprintf("BROKER_KIND must be one of: %s", strings.Join(validBrokers, ", ")))
	}

	if c.StatusPort < 1 || c.StatusPort > 65535 {
		errors = append(errors, "STATUS_PORT must be between 1 and 65535")
	}

	if c.RequestTimeout <= 0 {
		errors = append(errors, "REQUEST_TIMEOUT must be positive")
	}

	if c.RequestTopic == "" || c.ResponseTopic == "" || c.NotificationTopic == "" {
		errors = append(errors, "topic names must not be empty")
	}
	if c.RequestTopic == c.ResponseTopic {
		errors = append(errors, "REQUEST_TOPIC and RESPONSE_TOPIC must differ")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// RedisAddr strips the scheme prefix from the configured Redis URL.
func (c *Config) RedisAddr() string {
	addr := c.RedisURL
	addr = strings.TrimPrefix(addr, "redis://")
	addr = strings.TrimPrefix(addr, "rediss://")
	return addr
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
