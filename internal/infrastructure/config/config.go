package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/password"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerPort          int
	ShutdownGracePeriod time.Duration

	// Storage configuration
	DatabaseURL string
	// NetworkID pins the tenant; uuid.Nil means look it up in the store
	NetworkID uuid.UUID

	// Authorization server configuration
	HydraAdminURL   string
	HasherAlgorithm password.Scheme
	HookTimeout     time.Duration
	UpstreamTimeout time.Duration

	// Admin surface rate limiting
	AdminRateLimit int
	AdminRateBurst int

	// Logging
	LogLevel    string
	Environment string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		ServerPort:          8080,
		ShutdownGracePeriod: 30 * time.Second,
		HydraAdminURL:       "http://localhost:4445",
		HasherAlgorithm:     password.SchemePBKDF2,
		HookTimeout:         3 * time.Second,
		UpstreamTimeout:     10 * time.Second,
		AdminRateLimit:      50,
		AdminRateBurst:      100,
		LogLevel:            "info",
		Environment:         "prod",
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env from project root
	_ = godotenv.Load()

	cfg := NewConfig()

	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	var err error
	if cfg.ServerPort, err = getEnvInt("PORT", cfg.ServerPort); err != nil {
		return nil, err
	}
	if cfg.AdminRateLimit, err = getEnvInt("ADMIN_RATE_LIMIT", cfg.AdminRateLimit); err != nil {
		return nil, err
	}
	if cfg.AdminRateBurst, err = getEnvInt("ADMIN_RATE_BURST", cfg.AdminRateBurst); err != nil {
		return nil, err
	}
	if cfg.HookTimeout, err = getEnvDuration("HOOK_TIMEOUT", cfg.HookTimeout); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getEnvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownGracePeriod, err = getEnvDuration("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod); err != nil {
		return nil, err
	}

	if cfg.HasherAlgorithm, err = password.ParseScheme(getEnv("HASHER_ALGORITHM", string(cfg.HasherAlgorithm))); err != nil {
		return nil, err
	}

	if raw := getEnv("NETWORK_ID", ""); raw != "" {
		if cfg.NetworkID, err = uuid.Parse(raw); err != nil {
			return nil, fmt.Errorf("NETWORK_ID: %w", err)
		}
	}

	cfg.HydraAdminURL = strings.TrimRight(getEnv("HYDRA_ADMIN_URL", cfg.HydraAdminURL), "/")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = getEnv("ENV", cfg.Environment)

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return intValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}
