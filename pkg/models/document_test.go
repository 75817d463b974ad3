package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDocumentJSONRoundTrip(t *testing.T) {
	original := Document{
		ID:          "doc-123",
		Name:        "KITAS Extension Guide",
		Source:      "upload",
		SourceURI:   "/docs/visa/kitas-extension.md",
		ContentType: "text/markdown",
		Metadata: DocumentMetadata{
			Title:    "KITAS Extension Guide",
			Tags:     []string{"visa", "immigration"},
			Language: "en",
		},
		ChunkCount: 3,
		CreatedAt:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Document
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.ID != original.ID || decoded.Name != original.Name {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Metadata.Title != "KITAS Extension Guide" || len(decoded.Metadata.Tags) != 2 {
		t.Errorf("metadata = %+v", decoded.Metadata)
	}
	if decoded.ChunkCount != 3 {
		t.Errorf("ChunkCount = %d", decoded.ChunkCount)
	}
}

func TestDocumentChunkEmbeddingNotSerialized(t *testing.T) {
	chunk := DocumentChunk{
		ID:         "chunk-1",
		DocumentID: "doc-123",
		Index:      0,
		Content:    "A KITAS extension requires a sponsor letter.",
		Embedding:  []float32{0.1, 0.2, 0.3},
		TokenCount: 11,
	}

	raw, err := json.Marshal(chunk)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["Embedding"]; ok {
		t.Error("embedding vector must not serialize with the chunk")
	}
	if decoded["content"] != chunk.Content {
		t.Errorf("content = %v", decoded["content"])
	}
}

func TestDocumentSearchResultScore(t *testing.T) {
	result := DocumentSearchResult{
		Chunk: &DocumentChunk{ID: "c1", Content: "passage"},
		Score: 0.87,
	}
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	var decoded DocumentSearchResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Score != 0.87 || decoded.Chunk == nil || decoded.Chunk.ID != "c1" {
		t.Errorf("decoded = %+v", decoded)
	}
}
