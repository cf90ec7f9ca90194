package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const duckduckgoEndpoint = "https://api.duckduckgo.com/"

// DuckDuckGoTool searches via the DuckDuckGo Instant Answer API. It needs
// no credentials, which makes it the zero-configuration secondary backend.
type DuckDuckGoTool struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoTool creates the tool. baseURL overrides the endpoint for
// tests; pass "" for the real API.
func NewDuckDuckGoTool(baseURL string) *DuckDuckGoTool {
	if baseURL == "" {
		baseURL = duckduckgoEndpoint
	}
	return &DuckDuckGoTool{
		baseURL: baseURL,
		client:  newHTTPClient(10 * time.Second),
	}
}

func (t *DuckDuckGoTool) Name() string { return "duckduckgo_search" }

func (t *DuckDuckGoTool) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("duckduckgo search: build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("duckduckgo search: request failed", "error", err)
		return "", fmt.Errorf("duckduckgo search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("duckduckgo search: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Heading       string `json:"Heading"`
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("duckduckgo search: decode response: %w", err)
	}

	var results []Result
	if payload.AbstractText != "" && payload.AbstractURL != "" {
		results = append(results, Result{
			Title:   payload.Heading,
			Snippet: payload.AbstractText,
			URL:     payload.AbstractURL,
		})
	}
	for _, topic := range payload.RelatedTopics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, Result{
			Title:   topicTitle(topic.Text),
			Snippet: topic.Text,
			URL:     topic.FirstURL,
		})
		if len(results) >= maxResults {
			break
		}
	}

	slog.Debug("duckduckgo search: completed",
		"query_length", len(query),
		"results", len(results),
	)

	return Render(results, query), nil
}

// topicTitle derives a short title from an instant-answer topic text,
// which has no separate title field.
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	const maxTitle = 60
	if len(text) > maxTitle {
		return strings.TrimSpace(text[:maxTitle]) + "..."
	}
	return text
}
