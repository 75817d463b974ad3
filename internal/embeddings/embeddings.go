// Package embeddings turns text into the vectors the retrieval layer and
// document ingestion search by.
package embeddings

import "context"

// Provider is the embedding contract.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for many texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the vector width the provider produces.
	Dimension() int
}
