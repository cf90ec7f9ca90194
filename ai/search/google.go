package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleConfig configures the Google Custom Search tool.
type GoogleConfig struct {
	APIKey string
	CSEID  string
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
	// QPS bounds outgoing queries (free-tier quota). Default: 5.
	QPS float64
}

// GoogleTool searches via the Google Custom Search JSON API.
type GoogleTool struct {
	apiKey  string
	cseID   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGoogleTool creates the tool. Returns an error when the API key or
// engine id is missing so a misconfigured backend fails at startup, not on
// the first turn.
func NewGoogleTool(cfg GoogleConfig) (*GoogleTool, error) {
	if cfg.APIKey == "" || cfg.CSEID == "" {
		return nil, fmt.Errorf("google search: api key and cse id are required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleEndpoint
	}
	qps := cfg.QPS
	if qps <= 0 {
		qps = 5
	}

	return &GoogleTool{
		apiKey:  cfg.APIKey,
		cseID:   cfg.CSEID,
		baseURL: baseURL,
		client:  newHTTPClient(10 * time.Second),
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}, nil
}

func (t *GoogleTool) Name() string { return "google_search" }

func (t *GoogleTool) Search(ctx context.Context, query string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("google search: rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("key", t.apiKey)
	params.Set("cx", t.cseID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("google search: build request: %w", err)
	}

	startTime := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("google search: request failed", "error", err)
		return "", fmt.Errorf("google search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Error("google search: unexpected status", "status", resp.StatusCode)
		return "", fmt.Errorf("google search: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("google search: decode response: %w", err)
	}

	results := make([]Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}

	slog.Debug("google search: completed",
		"query_length", len(query),
		"results", len(results),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return Render(results, query), nil
}
