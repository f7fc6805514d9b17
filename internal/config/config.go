package config

import (
	"os"
	"strconv"
	"strings"

	"gosurv/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig
	Fitter  FitterConfig
	Batch   BatchConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	MaxRequestBytes int64
}

// FitterConfig holds Cox solver settings
type FitterConfig struct {
	MaxIterations int
	Tolerance     float64
}

// BatchConfig holds orchestration settings
type BatchConfig struct {
	// Workers is the number of records fitted concurrently; 1 means strictly sequential
	Workers int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:  *loadServerConfig(),
		Fitter:  *loadFitterConfig(),
		Batch:   *loadBatchConfig(),
		Logging: *loadLoggingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		MaxRequestBytes: int64(getEnvIntOrDefault("MAX_REQUEST_BYTES", 32<<20)),
	}
}

func loadFitterConfig() *FitterConfig {
	return &FitterConfig{
		MaxIterations: getEnvIntOrDefault("COX_MAX_ITERATIONS", 30),
		Tolerance:     getEnvFloatOrDefault("COX_TOLERANCE", 1e-9),
	}
}

func loadBatchConfig() *BatchConfig {
	return &BatchConfig{
		Workers: getEnvIntOrDefault("FIT_WORKERS", 1),
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid("GIN_MODE must be debug, release or test")
	}
	if config.Server.MaxRequestBytes <= 0 {
		return errors.ConfigInvalid("MAX_REQUEST_BYTES must be positive")
	}
	if config.Fitter.MaxIterations <= 0 {
		return errors.ConfigInvalid("COX_MAX_ITERATIONS must be positive")
	}
	if config.Fitter.Tolerance <= 0 || config.Fitter.Tolerance >= 1 {
		return errors.ConfigInvalid("COX_TOLERANCE must be in (0, 1)")
	}
	if config.Batch.Workers <= 0 {
		return errors.ConfigInvalid("FIT_WORKERS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
