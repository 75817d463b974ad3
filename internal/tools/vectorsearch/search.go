// Package vectorsearch implements the vector_search tool: semantic lookup
// over the curated document collections. With no collection argument it
// federates across every registered collection through the hybrid
// retriever, deduplicating and merging by score.
package vectorsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baliwise/ragcore/internal/retrieval"
	"github.com/baliwise/ragcore/internal/tool"
	"github.com/baliwise/ragcore/pkg/models"
)

// Tool implements tool.Tool over a HybridRetriever.
type Tool struct {
	retriever *retrieval.HybridRetriever
	topK      int
	maxTopK   int
}

// Config configures default search behavior.
type Config struct {
	DefaultTopK int
	MaxTopK     int
}

// New creates a vector_search tool backed by retriever.
func New(retriever *retrieval.HybridRetriever, cfg Config) *Tool {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 20
	}
	return &Tool{retriever: retriever, topK: cfg.DefaultTopK, maxTopK: cfg.MaxTopK}
}

func (t *Tool) Name() string { return "vector_search" }

func (t *Tool) Description() string {
	return "Searches the curated knowledge base (legal, visa, tax, business documents) for relevant passages. Omit 'collection' to search every collection at once."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The search query"},
    "collection": {"type": "string", "description": "Restrict the search to one collection"},
    "top_k": {"type": "integer", "description": "Maximum number of results (default 5, max 20)"}
  },
  "required": ["query"]
}`)
}

type input struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// envelope is the payload the ReAct engine unwraps to harvest sources.
type envelope struct {
	Content string          `json:"content"`
	Sources []models.Source `json:"sources"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	if t.retriever == nil {
		return &tool.Result{Content: "vector search is not configured", IsError: true}, nil
	}

	var in input
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return &tool.Result{Content: "query is required", IsError: true}, nil
	}

	topK := in.TopK
	if topK <= 0 {
		topK = t.topK
	}
	if topK > t.maxTopK {
		topK = t.maxTopK
	}

	opts := retrieval.FederatedSearchOptions{Query: query, TopK: topK}
	if in.Collection != "" {
		opts.Collections = []string{in.Collection}
	}

	chunks, err := t.retriever.Search(ctx, opts)
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	if len(chunks) == 0 {
		return &tool.Result{Content: fmt.Sprintf("no relevant documents found for %q", query)}, nil
	}

	var content strings.Builder
	sources := make([]models.Source, 0, len(chunks))
	for i, c := range chunks {
		if c.Result.Chunk == nil {
			continue
		}
		if i > 0 {
			content.WriteString("\n\n")
		}
		fmt.Fprintf(&content, "[%s] %s", c.Collection, c.Result.Chunk.Content)
		sources = append(sources, models.Source{
			Collection: c.Collection,
			DocumentID: c.Result.Chunk.DocumentID,
			Score:      float64(c.Result.Score),
		})
	}

	payload, err := json.Marshal(envelope{Content: content.String(), Sources: sources})
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("failed to format results: %v", err), IsError: true}, nil
	}
	return &tool.Result{Content: string(payload)}, nil
}
