package profile

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (ollama, deepseek, openai) use the same config.
	LLMProvider     string  // Provider identifier: ollama, deepseek, openai
	LLMAPIKey       string  // LLM API key (optional for ollama)
	LLMBaseURL      string  // LLM base URL (optional, has default per provider)
	LLMModel        string  // Main model for grounded answers
	LLMLightModel   string  // Light model for guardrail and summarization; falls back to LLMModel
	LLMTimeout      int     // Main-tier request timeout in seconds (default: 120)
	LLMLightTimeout int     // Light-tier request timeout in seconds (default: 30)
	LLMTemperature  float64 // Sampling temperature

	// Web search configuration
	GoogleAPIKey string // Google Custom Search API key
	GoogleCSEID  string // Google Custom Search Engine id
	GoogleQPS    int    // Google Custom Search rate limit (default: 5)

	// Background summarization configuration
	SummaryMaxTokens       int // Token cap per summary segment (default: 150)
	SummaryTimeoutSeconds  int // Per-summarization deadline in seconds (default: 60)
	MaxConcurrentSummaries int // Bound on in-flight summarizations (default: 4)

	// Server configuration
	Mode     string
	Addr     string
	Port     int
	UNIXSock string
	Version  string
}

// Provider default configurations for LLM.
// Used when LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "qwen2.5:7b",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("DENTALSENSE_LLM_PROVIDER", "ollama")
	p.LLMAPIKey = getEnvOrDefault("DENTALSENSE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("DENTALSENSE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("DENTALSENSE_LLM_MODEL", "")
	p.LLMLightModel = getEnvOrDefault("DENTALSENSE_LLM_LIGHT_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("DENTALSENSE_LLM_TIMEOUT_SECONDS", 120)
	p.LLMLightTimeout = getEnvOrDefaultInt("DENTALSENSE_LLM_LIGHT_TIMEOUT_SECONDS", 30)
	p.LLMTemperature = getEnvOrDefaultFloat("DENTALSENSE_LLM_TEMPERATURE", 0.3)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: ollama", "provider", p.LLMProvider)
		p.LLMProvider = "ollama"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	// Web search configuration
	p.GoogleAPIKey = getEnvOrDefault("DENTALSENSE_GOOGLE_API_KEY", "")
	p.GoogleCSEID = getEnvOrDefault("DENTALSENSE_GOOGLE_CSE_ID", "")
	p.GoogleQPS = getEnvOrDefaultInt("DENTALSENSE_GOOGLE_QPS", 5)

	// Background summarization configuration
	p.SummaryMaxTokens = getEnvOrDefaultInt("DENTALSENSE_SUMMARY_MAX_TOKENS", 150)
	p.SummaryTimeoutSeconds = getEnvOrDefaultInt("DENTALSENSE_SUMMARY_TIMEOUT_SECONDS", 60)
	p.MaxConcurrentSummaries = getEnvOrDefaultInt("DENTALSENSE_MAX_CONCURRENT_SUMMARIES", 4)
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	// Search keys travel as a pair: a key without an engine id (or the
	// reverse) is a misconfiguration, not a partial setup.
	if (p.GoogleAPIKey == "") != (p.GoogleCSEID == "") {
		return errors.New("DENTALSENSE_GOOGLE_API_KEY and DENTALSENSE_GOOGLE_CSE_ID must be set together")
	}

	return nil
}
