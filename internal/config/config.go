package config

import (
	"os"
)

type AppConfig struct {
	// Server
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	// Payment processor
	ProcessorBaseURL string
	ProcessorAPIKey  string

	// Session tokens from the accounts service
	SessionPubKeyPath string
	SessionIssuer     string
	SessionAudience   string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8000"),
		RedisAddr: getEnv("REDIS_ADDR", "redis-checkout:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		ProcessorBaseURL: getEnv("PROCESSOR_BASE_URL", "http://localhost:9000"),
		ProcessorAPIKey:  getEnv("PROCESSOR_API_KEY", ""),

		SessionPubKeyPath: getEnv("SESSION_PUBLIC_KEY_PATH", "/app/secrets/session_public.pem"),
		SessionIssuer:     getEnv("SESSION_ISSUER", "accounts"),
		SessionAudience:   getEnv("SESSION_AUDIENCE", "checkout"),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
