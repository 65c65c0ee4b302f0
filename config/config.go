// Package config provides centralized configuration for the mindwell server.
// All configurable values are loaded from environment variables with sensible
// defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file. Empty selects the
	// in-memory store.
	DBPath string

	// AnthropicKey is the API key for the Claude service. Empty selects the
	// stub runtime.
	AnthropicKey string

	// AnthropicModel is the model identifier for completions.
	AnthropicModel string

	// MaxTokens is the per-turn response token cap.
	MaxTokens int

	// ContextBudget is the character budget for injected memory context.
	ContextBudget int

	// HistoryWindow is how many recent turns feed the retrieval query.
	HistoryWindow int

	// EmbedCacheSize caps the embedding cache entry count.
	EmbedCacheSize int

	// DistillInterval is how often the background distillation runs. Zero
	// disables the loop.
	DistillInterval time.Duration

	// DistillConcurrency bounds parallel per-user distillation.
	DistillConcurrency int

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:               envOr("PORT", "8080"),
		DBPath:             os.Getenv("DB_PATH"),
		AnthropicKey:       os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     envOr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:          envInt("MAX_TOKENS", 4096),
		ContextBudget:      envInt("CONTEXT_BUDGET", 4000),
		HistoryWindow:      envInt("HISTORY_WINDOW", 4),
		EmbedCacheSize:     envInt("EMBED_CACHE_SIZE", 2048),
		DistillInterval:    envDuration("DISTILL_INTERVAL", time.Hour),
		DistillConcurrency: envInt("DISTILL_CONCURRENCY", 4),
		CORSOrigin:         envOr("CORS_ORIGIN", "*"),
	}
}

// UseStubs returns true when no API key is configured.
func (c Config) UseStubs() bool {
	return c.AnthropicKey == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
