package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the binary trading core.
type Config struct {
	Port string

	// Venue connection
	VenueURL          string
	VenueAppID        string
	UseMockVenue      bool
	MaxConnectRetries int

	// Database
	DBPath string

	// Logging
	LogLevel   string
	LogFile    string
	LogMaxMB   int
	LogBackups int

	// Auth / control surface
	JWTSecret string

	// Strategy presets file (YAML); empty means built-in defaults only.
	StrategyPresetsPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		VenueURL:            getEnv("VENUE_WS_URL", "wss://ws.binaryws.com/websockets/v3"),
		VenueAppID:          os.Getenv("VENUE_APP_ID"),
		UseMockVenue:        getEnv("USE_MOCK_VENUE", "false") == "true",
		MaxConnectRetries:   getEnvInt("VENUE_MAX_CONNECT_RETRIES", 5),
		DBPath:              getEnv("DB_PATH", "./data/sessions.db"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFile:             getEnv("LOG_FILE", ""),
		LogMaxMB:            getEnvInt("LOG_MAX_MB", 50),
		LogBackups:          getEnvInt("LOG_BACKUPS", 5),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		StrategyPresetsPath: getEnv("STRATEGY_PRESETS", ""),
	}

	if !cfg.UseMockVenue && cfg.VenueAppID == "" {
		return nil, fmt.Errorf("VENUE_APP_ID is required unless USE_MOCK_VENUE=true")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
