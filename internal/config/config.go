package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             string
	SessionAPIURL    string
	SessionAPIToken  string
	DataDir          string
	HintDelaySeconds int
	DatabaseURL      string
}

func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		SessionAPIURL:    os.Getenv("SESSION_API_URL"),
		SessionAPIToken:  os.Getenv("SESSION_API_TOKEN"),
		DataDir:          getEnv("DATA_DIR", "data"),
		HintDelaySeconds: getEnvInt("HINT_DELAY_SECONDS", 30),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
