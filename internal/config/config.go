package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Registry RegistryConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// RegistryConfig controls publication of the registry index document
type RegistryConfig struct {
	Path      string
	Interval  time.Duration
	BatchSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	interval, err := time.ParseDuration(getEnv("REGISTRY_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGISTRY_INTERVAL: %w", err)
	}

	batchSize, err := strconv.Atoi(getEnv("REGISTRY_BATCH_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGISTRY_BATCH_SIZE: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "sympep"),
			SQLitePath: getEnv("SQLITE_PATH", "sympep.db"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			},
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Registry: RegistryConfig{
			Path:      getEnv("REGISTRY_PATH", "sympep-0000.md"),
			Interval:  interval,
			BatchSize: batchSize,
		},
	}

	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		config.Server.AllowedOrigins = append(config.Server.AllowedOrigins, frontendURL)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.App.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if c.Registry.Path == "" {
		return fmt.Errorf("REGISTRY_PATH is required")
	}

	if c.Registry.Interval <= 0 {
		return fmt.Errorf("REGISTRY_INTERVAL must be positive")
	}

	if c.Registry.BatchSize <= 0 {
		return fmt.Errorf("REGISTRY_BATCH_SIZE must be positive")
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
