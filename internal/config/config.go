// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir       string // base directory for the strategies database, always absolute
	LogLevel      string
	Port          int
	DevMode       bool
	RetentionDays int // how long soft-deleted strategies are kept before purging
}

// Load reads configuration from environment variables, honoring a .env file
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("QUANTBLOCKS_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory %q: %w", dataDir, err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", absDataDir, err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	retention, err := strconv.Atoi(getEnv("STRATEGY_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid STRATEGY_RETENTION_DAYS: %w", err)
	}

	return &Config{
		DataDir:       absDataDir,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          port,
		DevMode:       getEnv("DEV_MODE", "false") == "true",
		RetentionDays: retention,
	}, nil
}

// DatabasePath returns the location of the strategies database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "strategies.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
