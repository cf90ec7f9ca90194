package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Tier selects which configured model strength serves a request.
type Tier string

const (
	// TierMain is the stronger model used for final answer generation.
	TierMain Tier = "main"
	// TierLight is the cheaper/faster model used for classification and
	// summarization tasks.
	TierLight Tier = "light"
)

// CallStats represents statistics for a single LLM call.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// Service is the text generation interface consumed by the chat core.
type Service interface {
	// Generate sends the prompt to the selected model tier and returns the
	// raw completion text. maxTokens <= 0 leaves the provider default in
	// place; a positive value bounds the output (used by the light tier to
	// keep summarization latency low).
	Generate(ctx context.Context, prompt string, tier Tier, maxTokens int) (string, *CallStats, error)

	// Warmup sends a lightweight ping to establish the connection early.
	Warmup(ctx context.Context)
}

// ErrorCategory classifies backend failures for callers that need to map
// them to transport responses.
type ErrorCategory string

const (
	ErrorUnreachable  ErrorCategory = "unreachable"
	ErrorModelMissing ErrorCategory = "model_missing"
	ErrorRateLimited  ErrorCategory = "rate_limited"
	ErrorOther        ErrorCategory = "other"
)

// BackendError wraps a provider failure with a distinguishable category.
type BackendError struct {
	Category ErrorCategory
	Model    string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("llm backend error (%s, model %s): %v", e.Category, e.Model, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Config represents LLM service configuration.
type Config struct {
	Provider     string // ollama, openai, deepseek, or any OpenAI-compatible provider
	APIKey       string
	BaseURL      string
	MainModel    string  // answer generation model
	LightModel   string  // guardrail/summarization model
	Temperature  float32 // default: 0.7
	MainTimeout  int     // main tier request timeout in seconds (default: 120)
	LightTimeout int     // light tier request timeout in seconds (default: 30)
}

type service struct {
	client       *openai.Client
	provider     string
	mainModel    string
	lightModel   string
	temperature  float32
	mainTimeout  time.Duration
	lightTimeout time.Duration
}

// NewService creates a new LLM Service over an OpenAI-compatible endpoint.
func NewService(cfg *Config) (Service, error) {
	if cfg.MainModel == "" {
		return nil, fmt.Errorf("llm: main model is required")
	}

	httpClient := newHTTPClient()

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = httpClient

	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		clientConfig.BaseURL = baseURL

	case "deepseek":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		clientConfig.BaseURL = baseURL

	case "openai":
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}

	default:
		// Generic fallback for any other OpenAI-compatible provider.
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}

	lightModel := cfg.LightModel
	if lightModel == "" {
		lightModel = cfg.MainModel
	}

	mainTimeout := cfg.MainTimeout
	if mainTimeout <= 0 {
		mainTimeout = 120
	}
	lightTimeout := cfg.LightTimeout
	if lightTimeout <= 0 {
		lightTimeout = 30
	}

	return &service{
		client:       openai.NewClientWithConfig(clientConfig),
		provider:     cfg.Provider,
		mainModel:    cfg.MainModel,
		lightModel:   lightModel,
		temperature:  cfg.Temperature,
		mainTimeout:  time.Duration(mainTimeout) * time.Second,
		lightTimeout: time.Duration(lightTimeout) * time.Second,
	}, nil
}

func (s *service) modelFor(tier Tier) (string, time.Duration) {
	if tier == TierLight {
		return s.lightModel, s.lightTimeout
	}
	return s.mainModel, s.mainTimeout
}

func (s *service) Generate(ctx context.Context, prompt string, tier Tier, maxTokens int) (string, *CallStats, error) {
	model, timeout := s.modelFor(tier)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Debug("LLM: generate request",
		"model", model,
		"tier", tier,
		"prompt_length", len(prompt),
		"max_tokens", maxTokens,
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("LLM: generate request failed", "model", model, "tier", tier, "error", err)
		return "", nil, &BackendError{Category: categorize(err), Model: model, Err: err}
	}

	if len(resp.Choices) == 0 {
		slog.Warn("LLM: empty response", "model", model, "tier", tier)
		return "", nil, &BackendError{Category: ErrorOther, Model: model, Err: fmt.Errorf("empty response from LLM")}
	}

	totalDuration := time.Since(startTime)

	stats := &CallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  totalDuration.Milliseconds(),
	}

	slog.Debug("LLM: generate response received",
		"model", model,
		"tier", tier,
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", stats.TotalDurationMs,
	)

	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("LLM: starting connection warmup",
		"provider", s.provider,
		"model", s.mainModel,
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       s.mainModel,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}

	_, err := s.client.CreateChatCompletion(warmupCtx, req)

	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", s.provider,
			"model", s.mainModel,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	slog.Info("LLM: connection warmed up successfully",
		"provider", s.provider,
		"model", s.mainModel,
		"duration_ms", duration.Milliseconds(),
	)
}

// categorize maps provider errors onto the error taxonomy. Status codes win
// over transport errors when both are available.
func categorize(err error) ErrorCategory {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusNotFound:
			return ErrorModelMissing
		case http.StatusTooManyRequests:
			return ErrorRateLimited
		}
		return ErrorOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorUnreachable
	}
	return ErrorOther
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
