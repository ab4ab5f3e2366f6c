package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port            int
	DatabaseURL     string
	LogLevel        string
	GeminiAPIKey    string
	GeminiModel     string
	PlacesAPIKey    string
	NatsURL         string
	NatsToken       string
	JWTSecret       string
	TokenTTLMinutes int
	AllowedOrigins  []string
}

func Load() Config {
	return Config{
		Port:            envInt("CADUCEE_PORT", 8600),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("CADUCEE_MODEL", "gemini-1.5-flash"),
		PlacesAPIKey:    envStr("PLACES_API_KEY", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		JWTSecret:       envStr("JWT_SECRET", ""),
		TokenTTLMinutes: envInt("TOKEN_TTL_MINUTES", 60),
		AllowedOrigins:  envList("ALLOWED_ORIGINS", "*"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key, fallback string) []string {
	raw := envStr(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
