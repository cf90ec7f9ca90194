// Package search provides the web retrieval tools that ground answer
// generation. Each tool renders hits into a delimited text blob; the chat
// core later parses the Link: lines back out to build the citation list.
package search

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Tool is a single retrieval backend.
type Tool interface {
	// Search returns rendered, source-attributed text for the query.
	// Zero hits yield the no-results sentinel, not an error; transport or
	// backend failures return an error and the caller treats the turn as
	// failed (an ungrounded answer is worse than an error).
	Search(ctx context.Context, query string) (string, error)

	// Name identifies the backend for logging and metrics.
	Name() string
}

// Result is one search hit before rendering.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// maxResults bounds how many hits ground a single answer.
const maxResults = 5

// blockSeparator joins rendered result blocks.
const blockSeparator = "\n---\n"

// Render formats hits into the text blob consumed as generation context.
func Render(results []Result, query string) string {
	if len(results) == 0 {
		return NoResultsSentinel(query)
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nContent: %s\nLink: %s\n", r.Title, r.Snippet, r.URL))
	}
	return strings.Join(blocks, blockSeparator)
}

// NoResultsSentinel is the literal returned when the backend yields no hits.
func NoResultsSentinel(query string) string {
	return fmt.Sprintf("No results found for query: %s", query)
}

// Supported retrieval backends, addressed by the inbound model tag.
const (
	ModelGoogle     = "dental-google"
	ModelDuckDuckGo = "dental-duckduckgo"
)

// Models lists the model tags exposed on the OpenAI-compatible surface.
func Models() []string {
	return []string{ModelGoogle, ModelDuckDuckGo}
}

// Registry resolves the retrieval tool for an inbound model tag.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the configured tools. Nil tools are
// skipped so an unconfigured backend simply isn't offered.
func NewRegistry(google, duckduckgo Tool) *Registry {
	tools := make(map[string]Tool)
	if google != nil {
		tools[ModelGoogle] = google
	}
	if duckduckgo != nil {
		tools[ModelDuckDuckGo] = duckduckgo
	}
	return &Registry{tools: tools}
}

// ForModel returns the tool serving the model tag.
func (r *Registry) ForModel(model string) (Tool, error) {
	tool, ok := r.tools[model]
	if !ok {
		return nil, fmt.Errorf("no search tool for model %q", model)
	}
	return tool, nil
}

// Has reports whether a model tag maps to a configured tool.
func (r *Registry) Has(model string) bool {
	_, ok := r.tools[model]
	return ok
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}
