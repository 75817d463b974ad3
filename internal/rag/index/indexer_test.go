package index

import (
	"context"
	"strings"
	"testing"

	"github.com/baliwise/ragcore/internal/rag/store"
	"github.com/baliwise/ragcore/pkg/models"
)

type fakeStore struct {
	doc    *models.Document
	chunks []*models.DocumentChunk
}

func (f *fakeStore) AddDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	f.doc, f.chunks = doc, chunks
	return nil
}
func (f *fakeStore) Search(ctx context.Context, q store.SearchQuery) ([]models.DocumentSearchResult, error) {
	return nil, nil
}
func (f *fakeStore) DeleteDocument(ctx context.Context, id string) error { return nil }
func (f *fakeStore) Count(ctx context.Context) (int, error)              { return 0, nil }
func (f *fakeStore) Close() error                                        { return nil }

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Dimension() int { return 3 }
func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 0, 0}
	}
	return out, nil
}

const sample = `---
title: KITAS Extension Guide
tags: [visa, immigration]
---
# Extending a KITAS

A KITAS extension requires a sponsor letter and must be filed before the
permit expires.

Pasal 1
Setiap orang asing wajib memiliki izin tinggal yang sah.
`

func TestIndexFullPipeline(t *testing.T) {
	st := &fakeStore{}
	embedder := &fakeEmbedder{}
	ix := New(st, embedder)

	result, err := ix.Index(context.Background(), &Request{
		Name:    "kitas.md",
		Source:  "upload",
		Content: strings.NewReader(sample),
	})
	if err != nil {
		t.Fatal(err)
	}

	if st.doc == nil || st.doc.Metadata.Title != "KITAS Extension Guide" {
		t.Errorf("doc = %+v", st.doc)
	}
	if len(st.doc.Metadata.Tags) != 2 {
		t.Errorf("tags = %v", st.doc.Metadata.Tags)
	}
	if result.ChunkCount != len(st.chunks) || result.ChunkCount == 0 {
		t.Errorf("chunk count = %d, stored = %d", result.ChunkCount, len(st.chunks))
	}
	for i, c := range st.chunks {
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d missing embedding", i)
		}
	}
	if embedder.calls != 1 {
		t.Errorf("embed calls = %d, want one batch", embedder.calls)
	}
	if strings.Contains(st.chunks[0].Content, "title: KITAS") {
		t.Error("frontmatter must not reach the chunks")
	}
}

func TestIndexTitleFallsBackToHeadingThenName(t *testing.T) {
	st := &fakeStore{}
	ix := New(st, &fakeEmbedder{})

	if _, err := ix.Index(context.Background(), &Request{Name: "x.md", Content: strings.NewReader("# Fee Schedule\n\nFees are listed below.")}); err != nil {
		t.Fatal(err)
	}
	if st.doc.Metadata.Title != "Fee Schedule" {
		t.Errorf("title = %q", st.doc.Metadata.Title)
	}

	if _, err := ix.Index(context.Background(), &Request{Name: "plain.txt", Content: strings.NewReader("No headings at all in this file.")}); err != nil {
		t.Fatal(err)
	}
	if st.doc.Metadata.Title != "plain" {
		t.Errorf("title = %q", st.doc.Metadata.Title)
	}
}

func TestIndexIdempotentDocumentID(t *testing.T) {
	st := &fakeStore{}
	ix := New(st, &fakeEmbedder{})
	if _, err := ix.Index(context.Background(), &Request{DocumentID: "doc-1", Name: "a.md", Content: strings.NewReader("content here")}); err != nil {
		t.Fatal(err)
	}
	if st.doc.ID != "doc-1" {
		t.Errorf("doc id = %q", st.doc.ID)
	}
}

func TestIndexEmptyDocumentFails(t *testing.T) {
	ix := New(&fakeStore{}, &fakeEmbedder{})
	if _, err := ix.Index(context.Background(), &Request{Name: "empty.md", Content: strings.NewReader("   \n")}); err == nil {
		t.Error("empty document must fail")
	}
}

func TestIndexBatchesLargeChunkSets(t *testing.T) {
	st := &fakeStore{}
	embedder := &fakeEmbedder{}
	ix := New(st, embedder)
	ix.EmbedBatchSize = 2

	big := strings.Repeat("# H\n\n"+strings.Repeat("Long regulation sentence. ", 80)+"\n\n", 4)
	if _, err := ix.Index(context.Background(), &Request{Name: "big.md", Content: strings.NewReader(big)}); err != nil {
		t.Fatal(err)
	}
	if len(st.chunks) <= 2 {
		t.Fatalf("expected several chunks, got %d", len(st.chunks))
	}
	if embedder.calls < 2 {
		t.Errorf("embed calls = %d, want batched calls", embedder.calls)
	}
}
