// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Storage settings.
	DatabasePath string // SQLite file path for the durable conversation log.

	// Session settings.
	SessionTimeout  time.Duration // Inactivity window before a session is eligible for cleanup.
	CleanupInterval time.Duration // How often the host sweeps expired sessions.

	// Conversation settings.
	HistoryWindow    int  // Messages included in the brain's context bundle.
	LogToolCalls     bool // Write tool_executions rows for every dispatched call.
	ConfirmDangerous bool // Route needs_confirmation intents through the confirmation gate.

	// LLM provider settings.
	LLMProvider      string // "openrouter", "ollama", or "auto"
	OpenRouterAPIKey string
	OpenRouterModel  string
	OllamaURL        string
	OllamaModel      string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabasePath:     envStr("HISHO_DB_PATH", "data/memory.sqlite"),
		SessionTimeout:   envDuration("HISHO_SESSION_TIMEOUT", 300*time.Second),
		CleanupInterval:  envDuration("HISHO_CLEANUP_INTERVAL", 60*time.Second),
		HistoryWindow:    envInt("HISHO_HISTORY_WINDOW", 10),
		LogToolCalls:     envBool("HISHO_LOG_TOOL_CALLS", true),
		ConfirmDangerous: envBool("HISHO_CONFIRM_DANGEROUS", true),
		LLMProvider:      envStr("HISHO_LLM_PROVIDER", "auto"),
		OpenRouterAPIKey: envStr("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  envStr("HISHO_OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OllamaURL:        envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      envStr("OLLAMA_MODEL", "qwen2.5:3b"),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:      envStr("OTEL_SERVICE_NAME", "hisho"),
		LogLevel:         envStr("HISHO_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: HISHO_DB_PATH is required")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("config: HISHO_SESSION_TIMEOUT must be positive")
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("config: HISHO_HISTORY_WINDOW must be positive")
	}
	switch c.LLMProvider {
	case "openrouter", "ollama", "auto":
	default:
		return fmt.Errorf("config: HISHO_LLM_PROVIDER must be openrouter, ollama, or auto (got %q)", c.LLMProvider)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
