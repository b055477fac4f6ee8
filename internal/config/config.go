// Package config provides centralized configuration for the Canopticon server.
// All configurable values are loaded from environment variables with sensible
// defaults; a .env.local file fills in anything the real environment leaves
// unset.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// SourcesPath is the path to the YAML source registry.
	SourcesPath string

	// LLMProvider selects which LLM backend to use: "openai", "gemini", "ollama".
	LLMProvider string

	// OpenAIKey is the API key for the OpenAI service.
	OpenAIKey string

	// OpenAIBaseURL is the endpoint for OpenAI-compatible services.
	OpenAIBaseURL string

	// OpenAIModel is the model identifier for OpenAI completions.
	OpenAIModel string

	// GeminiKey is the API key for the Google Gemini service.
	GeminiKey string

	// GeminiModel is the model identifier for Gemini completions.
	GeminiModel string

	// OllamaURL is the base URL for the local Ollama server.
	OllamaURL string

	// OllamaModel is the model identifier for Ollama completions.
	OllamaModel string

	// SignificanceThreshold is the minimum confidence score for automatic
	// approval of a signal.
	SignificanceThreshold int

	// GraceWindow is how long a below-threshold signal stays pending before
	// auto-triage rejects it, leaving room for an operator override.
	GraceWindow time.Duration

	// EnableAutoPublish controls whether synthesized articles go live
	// without operator review.
	EnableAutoPublish bool

	// BatchSize caps how many clusters are scored and how many signals are
	// synthesized per cycle.
	BatchSize int

	// FetchTimeout is the per-source budget for feed fetches.
	FetchTimeout time.Duration

	// ModelTimeout is the timeout for a single LLM request.
	ModelTimeout time.Duration

	// StallWindow is how long a signal may sit in processing before the
	// next cycle rescues it.
	StallWindow time.Duration

	// CycleInterval is the automatic cycle period. Zero disables the
	// scheduler; cycles then run only via the API.
	CycleInterval time.Duration

	// LogRetention is how long cycle log entries are kept.
	LogRetention time.Duration

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
// A .env.local file in the working directory is consulted for unset keys.
func Load() Config {
	loadEnvFile(".env.local")
	return Config{
		Port:                  envOr("PORT", "8080"),
		DBPath:                envOr("DB_PATH", "canopticon.db"),
		SourcesPath:           envOr("SOURCES_PATH", "sources.yaml"),
		LLMProvider:           envOr("LLM_PROVIDER", "openai"),
		OpenAIKey:             os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:           envOr("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiKey:             os.Getenv("GEMINI_API_KEY"),
		GeminiModel:           envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		OllamaURL:             envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:           envOr("OLLAMA_MODEL", "llama3"),
		SignificanceThreshold: envInt("SIGNIFICANCE_THRESHOLD", 65),
		GraceWindow:           envDuration("GRACE_WINDOW", time.Hour),
		EnableAutoPublish:     envBool("ENABLE_AUTO_PUBLISH", false),
		BatchSize:             envInt("BATCH_SIZE", 20),
		FetchTimeout:          envDuration("FETCH_TIMEOUT", 8*time.Second),
		ModelTimeout:          envDuration("MODEL_TIMEOUT", 60*time.Second),
		StallWindow:           envDuration("STALL_WINDOW", 10*time.Minute),
		CycleInterval:         envDuration("CYCLE_INTERVAL", 0),
		LogRetention:          envDuration("LOG_RETENTION", 7*24*time.Hour),
		CORSOrigin:            envOr("CORS_ORIGIN", "*"),
	}
}

// UseStubs returns true when no LLM API key is configured for the selected provider.
func (c Config) UseStubs() bool {
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiKey == ""
	case "ollama":
		return false // Ollama runs locally, no key needed
	default:
		return c.OpenAIKey == ""
	}
}

// loadEnvFile loads KEY=VALUE pairs from path into the environment. Values
// already present in the real environment win. A missing file is fine.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		v = strings.Trim(v, `"'`)
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
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

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
