// Package config provides configuration management for the slot RGS
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the RGS
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Game        GameConfig
	Integration IntegrationConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	SessionTimeout    time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// GameConfig holds game-related configuration
type GameConfig struct {
	DefaultCurrency string
	MinRTP          float64

	// DataDir holds the per-game definition files (YAML plus reel
	// strips) loaded at startup.
	DataDir string

	// RetryCap overrides the per-game outcome retry cap when positive.
	RetryCap int

	// DefaultShopPercent is the target return for shops without an
	// explicit configuration.
	DefaultShopPercent float64

	// LargeWinThreshold triggers a significant-event record when a
	// single spin pays at least this many cents.
	LargeWinThreshold int64
}

// IntegrationConfig holds credentials for the operator integration API.
// Requests to /integration/* must carry the API key and an HMAC-SHA256
// signature of the body computed with the secret.
type IntegrationConfig struct {
	APIKey    string
	APISecret string
}

// Load loads configuration from environment with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("RGS_PORT", "8080"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: getEnv("RGS_DB_DRIVER", "postgres"),
			DSN:    getEnv("RGS_DB_DSN", "host=localhost dbname=rgs sslmode=disable"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("RGS_JWT_SECRET", "rgs-dev-secret-change-in-production"),
			TokenExpiry:       24 * time.Hour,
			SessionTimeout:    30 * time.Minute,
			MaxFailedAttempts: 3,
			LockoutDuration:   30 * time.Minute,
		},
		Game: GameConfig{
			DefaultCurrency:    getEnv("RGS_CURRENCY", "USD"),
			MinRTP:             0.75, // GLI-19 §4.7.1 - minimum 75%
			DataDir:            getEnv("RGS_GAME_DATA", "configs/games"),
			RetryCap:           getEnvInt("RGS_ENGINE_RETRY_CAP", 0),
			DefaultShopPercent: getEnvFloat("RGS_SHOP_PERCENT", 90),
			LargeWinThreshold:  int64(getEnvInt("RGS_LARGE_WIN_CENTS", 1_000_00)),
		},
		Integration: IntegrationConfig{
			APIKey:    getEnv("RGS_INTEGRATION_KEY", "dev-integration-key"),
			APISecret: getEnv("RGS_INTEGRATION_SECRET", "dev-integration-secret"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
