// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Stats      StatsConfig
	Events     EventsConfig
	StatsStore StatsStoreConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// StatsConfig points the main service at the stats collaborator.
type StatsConfig struct {
	BaseURL string
	AppName string
	Timeout time.Duration

	// BreakerTimeout is how long a tripped breaker skips the service;
	// BreakerInterval is the window its failure counts cover.
	BreakerTimeout  time.Duration
	BreakerInterval time.Duration
}

// EventsConfig holds the rules applied to event dates.
type EventsConfig struct {
	MinLeadTime time.Duration
}

// StatsStoreConfig configures the reference stats service.
type StatsStoreConfig struct {
	Port   string
	Driver string
	DSN    string
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, is applied first without overriding variables that
// are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "eventhub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 20),
		},
		Stats: StatsConfig{
			BaseURL: getEnv("STATS_SERVER_URL", "http://localhost:9090"),
			AppName: getEnv("STATS_APP_NAME", "eventhub-main-service"),
			Timeout: getDurationEnv("STATS_TIMEOUT", 3*time.Second),

			BreakerTimeout:  getDurationEnv("STATS_BREAKER_TIMEOUT", 30*time.Second),
			BreakerInterval: getDurationEnv("STATS_BREAKER_INTERVAL", 60*time.Second),
		},
		Events: EventsConfig{
			MinLeadTime: getDurationEnv("EVENT_MIN_LEAD_TIME", 2*time.Hour),
		},
		StatsStore: StatsStoreConfig{
			Port:   getEnv("STATS_PORT", "9090"),
			Driver: getEnv("STATS_DB_DRIVER", "postgres"),
			DSN:    getEnv("STATS_DB_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=stats sslmode=disable"),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate checks the settings the main service needs. It returns every
// failure joined into one error, or nil.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}

	if c.Stats.BaseURL == "" {
		errs = append(errs, errors.New("STATS_SERVER_URL is required"))
	}
	if c.Stats.AppName == "" {
		errs = append(errs, errors.New("STATS_APP_NAME is required"))
	}
	if c.Stats.Timeout <= 0 {
		errs = append(errs, errors.New("STATS_TIMEOUT must be positive"))
	}
	if c.Stats.BreakerTimeout < 0 || c.Stats.BreakerInterval < 0 {
		errs = append(errs, errors.New("STATS_BREAKER_TIMEOUT and STATS_BREAKER_INTERVAL must not be negative"))
	}

	if c.Events.MinLeadTime < 0 {
		errs = append(errs, errors.New("EVENT_MIN_LEAD_TIME must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateStatsStore checks the settings the stats service needs.
func (c *Config) ValidateStatsStore() error {
	var errs []error
	if c.StatsStore.Port == "" {
		errs = append(errs, errors.New("STATS_PORT is required"))
	}
	if c.StatsStore.Driver != "postgres" && c.StatsStore.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("STATS_DB_DRIVER must be 'postgres' or 'sqlite', got '%s'", c.StatsStore.Driver))
	}
	if c.StatsStore.DSN == "" {
		errs = append(errs, errors.New("STATS_DB_DSN is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
