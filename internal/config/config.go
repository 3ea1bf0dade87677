// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	App         AppConfig
	Server      ServerConfig
	RecordStore RecordStoreConfig
	Storage     StorageConfig
	Pixel       PixelConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
	Currency    string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RecordStoreConfig contains backend record store configuration.
// ServerKey grants full read/write, PublicKey restricted read. With
// neither present the client degrades to an inert stub.
type RecordStoreConfig struct {
	Host      string
	Port      string
	DB        int
	ServerKey string
	PublicKey string
}

// StorageConfig contains client-local snapshot storage configuration
type StorageConfig struct {
	SnapshotDir string
}

// PixelConfig contains the external ad-pixel sink configuration.
// An empty endpoint is a normal condition, not an error.
type PixelConfig struct {
	Endpoint string
	ID       string
	Timeout  time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront Backend"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			Currency:    getEnv("APP_CURRENCY", "INR"),
		},
		Server: ServerConfig{
			Port:         getEnv("APP_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		RecordStore: RecordStoreConfig{
			Host:      getEnv("RECORDSTORE_HOST", "localhost"),
			Port:      getEnv("RECORDSTORE_PORT", "6379"),
			DB:        getEnvAsInt("RECORDSTORE_DB", 0),
			ServerKey: getEnv("RECORDSTORE_SERVER_KEY", ""),
			PublicKey: getEnv("RECORDSTORE_PUBLIC_KEY", ""),
		},
		Storage: StorageConfig{
			SnapshotDir: getEnv("SNAPSHOT_DIR", "./data/carts"),
		},
		Pixel: PixelConfig{
			Endpoint: getEnv("PIXEL_ENDPOINT", ""),
			ID:       getEnv("PIXEL_ID", ""),
			Timeout:  getEnvAsDuration("PIXEL_TIMEOUT", 3*time.Second),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 50),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept"}),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration. Missing record store credentials
// are deliberately not an error: the client degrades to an inert stub and
// the cart keeps working on client-local persistence alone.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Storage.SnapshotDir == "" {
		return fmt.Errorf("SNAPSHOT_DIR is required")
	}

	if c.App.Currency == "" {
		return fmt.Errorf("APP_CURRENCY is required")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetRecordStoreAddr returns the record store address
func (c *Config) GetRecordStoreAddr() string {
	return fmt.Sprintf("%s:%s", c.RecordStore.Host, c.RecordStore.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
