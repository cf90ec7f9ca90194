package profile

import (
	"os"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"LLMProvider default", "ollama", profile.LLMProvider},
		{"LLMBaseURL default", "http://localhost:11434/v1", profile.LLMBaseURL},
		{"LLMModel default", "qwen2.5:7b", profile.LLMModel},
		{"LLMLightModel empty by default", "", profile.LLMLightModel},
		{"GoogleAPIKey empty by default", "", profile.GoogleAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.LLMTimeout != 120 {
		t.Errorf("LLMTimeout default: expected 120, got %d", profile.LLMTimeout)
	}
	if profile.LLMLightTimeout != 30 {
		t.Errorf("LLMLightTimeout default: expected 30, got %d", profile.LLMLightTimeout)
	}
	if profile.SummaryMaxTokens != 150 {
		t.Errorf("SummaryMaxTokens default: expected 150, got %d", profile.SummaryMaxTokens)
	}
	if profile.MaxConcurrentSummaries != 4 {
		t.Errorf("MaxConcurrentSummaries default: expected 4, got %d", profile.MaxConcurrentSummaries)
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "deepseek provider gets its base URL",
			envVar:   "DENTALSENSE_LLM_PROVIDER",
			envValue: "deepseek",
			field:    func(p *Profile) string { return p.LLMBaseURL },
			expected: "https://api.deepseek.com",
		},
		{
			name:     "explicit base URL wins over provider default",
			envVar:   "DENTALSENSE_LLM_BASE_URL",
			envValue: "http://llm.internal:8000/v1",
			field:    func(p *Profile) string { return p.LLMBaseURL },
			expected: "http://llm.internal:8000/v1",
		},
		{
			name:     "light model",
			envVar:   "DENTALSENSE_LLM_LIGHT_MODEL",
			envValue: "qwen2.5:1.5b",
			field:    func(p *Profile) string { return p.LLMLightModel },
			expected: "qwen2.5:1.5b",
		},
		{
			name:     "google API key",
			envVar:   "DENTALSENSE_GOOGLE_API_KEY",
			envValue: "test-google-key",
			field:    func(p *Profile) string { return p.GoogleAPIKey },
			expected: "test-google-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			os.Setenv(tt.envVar, tt.envValue)
			defer os.Unsetenv(tt.envVar)

			profile := &Profile{}
			profile.FromEnv()

			if actual := tt.field(profile); actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestProfileUnknownProviderFallsBack(t *testing.T) {
	clearEnvVars()
	os.Setenv("DENTALSENSE_LLM_PROVIDER", "mystery")
	defer os.Unsetenv("DENTALSENSE_LLM_PROVIDER")

	profile := &Profile{}
	profile.FromEnv()

	if profile.LLMProvider != "ollama" {
		t.Errorf("expected fallback provider ollama, got %q", profile.LLMProvider)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Profile)
		wantErr bool
	}{
		{
			name:  "valid minimal profile",
			setup: func(p *Profile) { p.Mode = "dev"; p.Port = 28081 },
		},
		{
			name:    "invalid port",
			setup:   func(p *Profile) { p.Mode = "dev"; p.Port = 0 },
			wantErr: true,
		},
		{
			name:    "google key without engine id",
			setup:   func(p *Profile) { p.Mode = "dev"; p.Port = 28081; p.GoogleAPIKey = "k" },
			wantErr: true,
		},
		{
			name: "google key with engine id",
			setup: func(p *Profile) {
				p.Mode = "dev"
				p.Port = 28081
				p.GoogleAPIKey = "k"
				p.GoogleCSEID = "cx"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &Profile{}
			tt.setup(profile)
			err := profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfileValidateNormalizesMode(t *testing.T) {
	profile := &Profile{Mode: "staging", Port: 28081}
	if err := profile.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if profile.Mode != "demo" {
		t.Errorf("expected mode normalized to demo, got %q", profile.Mode)
	}
}

// clearEnvVars clears all service environment variables.
func clearEnvVars() {
	prefix := "DENTALSENSE_"
	suffixes := []string{
		"LLM_PROVIDER",
		"LLM_API_KEY",
		"LLM_BASE_URL",
		"LLM_MODEL",
		"LLM_LIGHT_MODEL",
		"LLM_TIMEOUT_SECONDS",
		"LLM_LIGHT_TIMEOUT_SECONDS",
		"LLM_TEMPERATURE",
		"GOOGLE_API_KEY",
		"GOOGLE_CSE_ID",
		"GOOGLE_QPS",
		"SUMMARY_MAX_TOKENS",
		"SUMMARY_TIMEOUT_SECONDS",
		"MAX_CONCURRENT_SUMMARIES",
	}

	for _, suffix := range suffixes {
		os.Unsetenv(prefix + suffix)
	}
}
