package config

import (
	"log"
	"os"
	"strconv"
)

// Config carries process-level settings. Database settings are owned by
// internal/db, which reads DATABASE_DSN and MIGRATIONS from the environment
// itself so the maintenance flags work without a full config load.
type Config struct {
	Port string
	Env  string
	Dev  bool
}

// Load reads configuration from the environment with defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),
		Dev:  ParseBool("DEV", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}
