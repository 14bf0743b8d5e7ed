package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// client
	APIBaseURL    string
	SessionDBPath string
	LogLevel      string

	// stub server
	Port           string
	JWTSecret      string
	SeedFile       string
	RateLimitRPS   float64
	RateLimitBurst int
	GinMode        string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:     envOrDefault("API_BASE_URL", "http://localhost:8080"),
		SessionDBPath:  envOrDefault("SESSION_DB_PATH", defaultSessionPath()),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		Port:           envOrDefault("PORT", "8080"),
		JWTSecret:      envOrDefault("JWT_SECRET", "dev-only-secret"),
		SeedFile:       os.Getenv("SEED_FILE"),
		RateLimitRPS:   envOrDefaultFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: envOrDefaultInt("RATE_LIMIT_BURST", 30),
		GinMode:        envOrDefault("GIN_MODE", "release"),
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "planner-session.db"
	}
	return filepath.Join(home, ".planner", "session.db")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
