package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Log        LogConfig
	Auth       AuthConfig
	Feed       FeedConfig
	Calculator CalculatorConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// AuthConfig holds session configuration.
// SessionKey is a base64 fernet key; an empty key makes the server generate
// one at start-up, which invalidates sessions across restarts.
// SweepSchedule is the cron spec of the expired-session cleanup.
type AuthConfig struct {
	SessionKey    string
	SessionTTL    time.Duration
	SweepSchedule string
}

// FeedConfig holds price feed and polling configuration
type FeedConfig struct {
	FiatCurrency        string
	PrimaryAssetSymbol  string
	PrimaryPollSchedule string
	CycleSchedule       string
	CycleItemDelay      time.Duration
	RatePerSecond       float64
	Timeout             time.Duration
}

// CalculatorConfig holds draft calculator configuration
type CalculatorConfig struct {
	Debounce time.Duration
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	sessionTTL, err := getDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	itemDelay, err := getDuration("CYCLE_ITEM_DELAY", 30*time.Second)
	if err != nil {
		return nil, err
	}
	feedTimeout, err := getDuration("FEED_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	debounce, err := getDuration("CALCULATOR_DEBOUNCE", time.Second)
	if err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(getEnv("FEED_RATE_PER_SECOND", "1"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid FEED_RATE_PER_SECOND: %q", os.Getenv("FEED_RATE_PER_SECOND"))
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/cryptofolio.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Auth: AuthConfig{
			SessionKey:    getEnv("SESSION_KEY", ""),
			SessionTTL:    sessionTTL,
			SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 1m"),
		},
		Feed: FeedConfig{
			FiatCurrency:        strings.ToLower(getEnv("FIAT_CURRENCY", "eur")),
			PrimaryAssetSymbol:  strings.ToUpper(getEnv("PRIMARY_ASSET_SYMBOL", "BTC")),
			PrimaryPollSchedule: getEnv("PRIMARY_POLL_SCHEDULE", "@every 60s"),
			CycleSchedule:       getEnv("CYCLE_SCHEDULE", "@every 30m"),
			CycleItemDelay:      itemDelay,
			RatePerSecond:       rate,
			Timeout:             feedTimeout,
		},
		Calculator: CalculatorConfig{
			Debounce: debounce,
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
