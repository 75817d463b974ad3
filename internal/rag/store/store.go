// Package store defines the persistence contract for ingested documents:
// the minimal surface the indexer writes through and federated retrieval
// reads through.
package store

import (
	"context"

	"github.com/baliwise/ragcore/pkg/models"
)

// SearchQuery is a single vector search over a store's chunks.
type SearchQuery struct {
	// Embedding is the query vector.
	Embedding []float32

	// Limit caps the number of results.
	Limit int

	// Threshold drops results whose similarity score falls below it.
	Threshold float32
}

// DocumentStore persists documents and their embedded chunks.
type DocumentStore interface {
	// AddDocument stores a document and its chunks, replacing any
	// existing document with the same id.
	AddDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error

	// Search returns the chunks nearest to the query embedding, best
	// first.
	Search(ctx context.Context, q SearchQuery) ([]models.DocumentSearchResult, error)

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// Count reports how many documents the store holds.
	Count(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close() error
}
