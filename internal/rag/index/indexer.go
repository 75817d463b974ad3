// Package index runs the ingestion pipeline: read a document, strip its
// frontmatter, pick a title, chunk it, embed the chunks in batches, and
// write the result to the document store.
package index

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/baliwise/ragcore/internal/embeddings"
	"github.com/baliwise/ragcore/internal/rag/chunker"
	"github.com/baliwise/ragcore/internal/rag/store"
	"github.com/baliwise/ragcore/pkg/models"
)

// Indexer ties the pipeline together.
type Indexer struct {
	store    store.DocumentStore
	embedder embeddings.Provider
	chunking chunker.Config

	// EmbedBatchSize bounds how many chunks one embedding call carries.
	EmbedBatchSize int
}

// New creates an Indexer with default chunking bounds.
func New(st store.DocumentStore, embedder embeddings.Provider) *Indexer {
	return &Indexer{store: st, embedder: embedder, chunking: chunker.DefaultConfig(), EmbedBatchSize: 64}
}

// WithChunking overrides the chunking bounds.
func (ix *Indexer) WithChunking(cfg chunker.Config) *Indexer {
	ix.chunking = cfg
	return ix
}

// Request describes one document to ingest.
type Request struct {
	// DocumentID makes re-ingestion idempotent; generated when empty.
	DocumentID string

	// Name is the document's display name, usually the file name.
	Name string

	// Source says where the document came from ("upload", "url").
	Source string

	// SourceURI is the original path or URL.
	SourceURI string

	// Content is the document body.
	Content io.Reader
}

// Result reports what one ingestion produced.
type Result struct {
	Document    *models.Document
	ChunkCount  int
	TotalTokens int
	Duration    time.Duration
}

// Index runs the full pipeline for one document.
func (ix *Indexer) Index(ctx context.Context, req *Request) (*Result, error) {
	started := time.Now()
	if req == nil || req.Content == nil {
		return nil, fmt.Errorf("index: request with content is required")
	}

	raw, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, fmt.Errorf("index: read content: %w", err)
	}
	body, meta := stripFrontmatter(string(raw))
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("index: document %q is empty", req.Name)
	}

	doc := &models.Document{
		ID:          req.DocumentID,
		Name:        req.Name,
		Source:      req.Source,
		SourceURI:   req.SourceURI,
		ContentType: "text/markdown",
		Metadata:    meta,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = extractTitle(body, req.Name)
	}

	chunks := chunker.Chunk(doc, body, ix.chunking)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("index: document %q produced no chunks", req.Name)
	}
	if err := ix.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}
	if err := ix.store.AddDocument(ctx, doc, chunks); err != nil {
		return nil, err
	}

	totalTokens := 0
	for _, c := range chunks {
		totalTokens += c.TokenCount
	}
	doc.ChunkCount = len(chunks)
	doc.TotalTokens = totalTokens
	return &Result{Document: doc, ChunkCount: len(chunks), TotalTokens: totalTokens, Duration: time.Since(started)}, nil
}

func (ix *Indexer) embedChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	batch := ix.EmbedBatchSize
	if batch <= 0 {
		batch = 64
	}
	for start := 0; start < len(chunks); start += batch {
		end := start + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("index: embed chunks %d-%d: %w", start, end, err)
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}
	return nil
}

var frontmatterRe = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n`)

// stripFrontmatter removes a leading YAML frontmatter block, lifting the
// fields the corpus actually uses into document metadata.
func stripFrontmatter(content string) (string, models.DocumentMetadata) {
	var meta models.DocumentMetadata
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return content, meta
	}

	var fields struct {
		Title       string   `yaml:"title"`
		Author      string   `yaml:"author"`
		Description string   `yaml:"description"`
		Tags        []string `yaml:"tags"`
		Language    string   `yaml:"language"`
	}
	if err := yaml.Unmarshal([]byte(m[1]), &fields); err == nil {
		meta.Title = fields.Title
		meta.Author = fields.Author
		meta.Description = fields.Description
		meta.Tags = fields.Tags
		meta.Language = fields.Language
	}
	return content[len(m[0]):], meta
}

var firstHeadingRe = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)

// extractTitle prefers the first markdown heading, then the file name.
func extractTitle(body, name string) string {
	if m := firstHeadingRe.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	name = strings.TrimSuffix(name, ".md")
	name = strings.TrimSuffix(name, ".txt")
	return name
}
