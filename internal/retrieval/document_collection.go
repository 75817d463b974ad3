package retrieval

import (
	"context"
	"fmt"

	"github.com/baliwise/ragcore/internal/embeddings"
	ragstore "github.com/baliwise/ragcore/internal/rag/store"
	"github.com/baliwise/ragcore/pkg/models"
)

// DocumentStoreCollection adapts a document store plus an embedder into
// the Collection interface, so pgvector-backed stores plug straight into
// the CollectionManager.
type DocumentStoreCollection struct {
	name     string
	store    ragstore.DocumentStore
	embedder embeddings.Provider
}

// NewDocumentStoreCollection wraps store as the named collection.
func NewDocumentStoreCollection(name string, store ragstore.DocumentStore, embedder embeddings.Provider) *DocumentStoreCollection {
	return &DocumentStoreCollection{name: name, store: store, embedder: embedder}
}

func (c *DocumentStoreCollection) Name() string { return c.name }

func (c *DocumentStoreCollection) Search(ctx context.Context, opts SearchOptions) ([]models.DocumentSearchResult, error) {
	embedding, err := c.embedder.Embed(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query for %q: %w", c.name, err)
	}
	return c.store.Search(ctx, ragstore.SearchQuery{
		Embedding: embedding,
		Limit:     opts.Limit,
		Threshold: opts.Threshold,
	})
}

func (c *DocumentStoreCollection) Close() error { return c.store.Close() }
