package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i := range req.Input {
			data[i] = datum{Index: i, Embedding: []float32{float32(i), 0.5}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	server := embeddingServer(t)
	defer server.Close()

	p, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := p.EmbedBatch(context.Background(), []string{"kitas extension", "pt pma capital"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors = %d", len(vectors))
	}
	if vectors[0][0] != 0 || vectors[1][0] != 1 {
		t.Errorf("order not preserved: %v", vectors)
	}
}

func TestEmbedSingle(t *testing.T) {
	server := embeddingServer(t)
	defer server.Close()

	p, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := p.Embed(context.Background(), "kitas")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	p := &OpenAI{}
	vectors, err := p.EmbedBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("empty input should be a no-op, got %v, %v", vectors, err)
	}
}
