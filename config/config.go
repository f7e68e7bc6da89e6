// Package config provides environment-backed configuration helpers.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/alcyonehq/alcyone/internal/logger"
)

// LoadEnv loads a .env file if one is present in the working directory.
// A missing file is not an error; explicit environment always wins because
// godotenv does not override variables that are already set.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvInt retrieves an integer environment variable with a fallback value
// if not set or not parseable
func GetEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warnf("Invalid integer for %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

// GetEnvDuration retrieves a duration environment variable ("5s", "3m") with
// a fallback value if not set or not parseable
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warnf("Invalid duration for %s: %q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
