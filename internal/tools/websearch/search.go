// Package websearch implements the web_search tool: an external lookup
// used only when the curated knowledge base cannot answer (a new
// regulation announcement, a current exchange rate). Every result set
// carries a trailing disclaimer, appended by the tool itself, so answers
// built on web results are always marked as unverified.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baliwise/ragcore/internal/tool"
)

// Result is one external search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Backend performs the actual lookup. Two implementations ship: the
// Brave Search API when a key is configured, and DuckDuckGo's
// instant-answer endpoint as the keyless default.
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Config configures the tool.
type Config struct {
	// MaxResults caps how many hits one call may return.
	MaxResults int

	// Disclaimer is appended after the results. Left empty it falls back
	// to the standard unverified-source notice.
	Disclaimer string
}

// Tool implements tool.Tool over a Backend.
type Tool struct {
	backend    Backend
	maxResults int
	disclaimer string
}

// New creates a web_search tool over backend.
func New(backend Backend, cfg Config) *Tool {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Disclaimer == "" {
		cfg.Disclaimer = "Note: these results come from the public web and have not been verified against curated sources."
	}
	return &Tool{backend: backend, maxResults: cfg.MaxResults, disclaimer: cfg.Disclaimer}
}

func (t *Tool) Name() string { return "web_search" }

func (t *Tool) Description() string {
	return "Searches the public web. Use only for current events or information absent from the curated knowledge base; results are unverified."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The search query"},
    "num_results": {"type": "integer", "description": "Maximum number of results (default 5)"}
  },
  "required": ["query"]
}`)
}

type input struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	if t.backend == nil {
		return &tool.Result{Content: "web search is not configured", IsError: true}, nil
	}
	var in input
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return &tool.Result{Content: "query is required", IsError: true}, nil
	}
	limit := in.NumResults
	if limit <= 0 || limit > t.maxResults {
		limit = t.maxResults
	}

	results, err := t.backend.Search(ctx, query, limit)
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("web search failed: %v", err), IsError: true}, nil
	}

	var b strings.Builder
	if len(results) == 0 {
		fmt.Fprintf(&b, "no web results found for %q", query)
	} else {
		for i, r := range results {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "%d. %s\n%s", i+1, r.Title, r.Snippet)
			if r.URL != "" {
				fmt.Fprintf(&b, "\n(%s)", r.URL)
			}
		}
	}
	b.WriteString("\n\n")
	b.WriteString(t.disclaimer)
	return &tool.Result{Content: b.String()}, nil
}

// BraveBackend queries the Brave Search API.
type BraveBackend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewBraveBackend creates a Brave backend. baseURL overrides the public
// endpoint, for tests.
func NewBraveBackend(apiKey, baseURL string) *BraveBackend {
	if baseURL == "" {
		baseURL = "https://api.search.brave.com/res/v1/web/search"
	}
	return &BraveBackend{apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: 15 * time.Second}}
}

func (b *BraveBackend) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u := fmt.Sprintf("%s?q=%s&count=%d", b.baseURL, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search returned %s", resp.Status)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	out := make([]Result, 0, limit)
	for _, r := range payload.Web.Results {
		if len(out) >= limit {
			break
		}
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}

// DuckDuckGoBackend queries DuckDuckGo's keyless instant-answer endpoint.
// Coverage is thinner than a paid API, which is acceptable: the web is the
// last-resort source here, not the primary one.
type DuckDuckGoBackend struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoBackend creates a DuckDuckGo backend.
func NewDuckDuckGoBackend(baseURL string) *DuckDuckGoBackend {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com/"
	}
	return &DuckDuckGoBackend{baseURL: baseURL, client: &http.Client{Timeout: 15 * time.Second}}
}

func (d *DuckDuckGoBackend) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", d.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned %s", resp.Status)
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
		return nil, fmt.Errorf("decode duckduckgo response: %w", err)
	}

	var out []Result
	if payload.AbstractText != "" {
		out = append(out, Result{Title: payload.Heading, URL: payload.AbstractURL, Snippet: payload.AbstractText})
	}
	for _, t := range payload.RelatedTopics {
		if len(out) >= limit {
			break
		}
		if t.Text == "" {
			continue
		}
		out = append(out, Result{Title: firstSentence(t.Text), URL: t.FirstURL, Snippet: t.Text})
	}
	return out, nil
}

func firstSentence(s string) string {
	if idx := strings.IndexAny(s, ".!?"); idx > 0 && idx < 80 {
		return s[:idx]
	}
	if len(s) > 80 {
		return s[:80]
	}
	return s
}
