// Package config loads service configuration from the environment into an
// explicit struct passed to components, replacing module-level env reads.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	Port string
	Env  string // "development" unless APP_ENV says otherwise

	DatabaseURL    string // empty selects the in-memory audit log
	AllowedOrigins []string

	AIProvider      string // gemini (default), claude, openai
	GeminiAPIKey    string
	GeminiAPIURL    string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	Sanitizer string // "regex" (default) or "policy"

	RateLimitMax    int
	RateLimitWindow time.Duration

	LogLevel string
}

// Load reads the environment (after a best-effort .env load) and applies
// defaults. It never fails; absent keys get usable development defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: envOr("PORT", "8000"),
		Env:  envOr("APP_ENV", "development"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AllowedOrigins: splitList(envOr("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		AIProvider:      envOr("AI_PROVIDER", "gemini"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiAPIURL:    os.Getenv("GEMINI_API_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),

		Sanitizer: envOr("SANITIZER", "regex"),

		RateLimitMax:    envInt("RATE_LIMIT_MAX_REQUESTS", 20),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,

		LogLevel: os.Getenv("LOG_LEVEL"),
	}
}

// Production reports whether the service runs in production; destructive
// admin operations are refused there.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func envOr(key, fallback string) string {
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
