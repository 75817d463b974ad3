package vectorsearch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/internal/retrieval"
	"github.com/baliwise/ragcore/pkg/models"
)

type fakeCollection struct {
	name    string
	results []models.DocumentSearchResult
}

func (f *fakeCollection) Name() string { return f.name }
func (f *fakeCollection) Close() error { return nil }
func (f *fakeCollection) Search(ctx context.Context, opts retrieval.SearchOptions) ([]models.DocumentSearchResult, error) {
	return f.results, nil
}

func newRetriever(t *testing.T, collections map[string][]models.DocumentSearchResult) *retrieval.HybridRetriever {
	t.Helper()
	cfg := config.RetrievalConfig{Collections: map[string]config.CollectionConfig{}}
	for name := range collections {
		cfg.Collections[name] = config.CollectionConfig{Backend: "fake"}
	}
	manager := retrieval.NewCollectionManager(cfg, func(name string, cc config.CollectionConfig) (retrieval.Collection, error) {
		return &fakeCollection{name: name, results: collections[name]}, nil
	})
	return retrieval.NewHybridRetriever(manager, cfg)
}

func chunk(id, content string, score float32) models.DocumentSearchResult {
	return models.DocumentSearchResult{
		Chunk: &models.DocumentChunk{ID: id, DocumentID: id, Content: content},
		Score: score,
	}
}

func TestExecuteFederatedSearch(t *testing.T) {
	retr := newRetriever(t, map[string][]models.DocumentSearchResult{
		"visa":  {chunk("v1", "A KITAS extension requires a sponsor letter.", 0.9)},
		"legal": {chunk("l1", "PT PMA minimum capital is 10 billion IDR.", 0.8)},
	})
	tl := New(retr, Config{})

	result, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"kitas"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}

	var env envelope
	if err := json.Unmarshal([]byte(result.Content), &env); err != nil {
		t.Fatalf("result is not the search envelope: %v", err)
	}
	if len(env.Sources) != 2 {
		t.Errorf("sources = %d, want one per collection", len(env.Sources))
	}
	if env.Sources[0].Score < env.Sources[1].Score {
		t.Error("sources must be merged in descending score order")
	}
	if !strings.Contains(env.Content, "sponsor letter") || !strings.Contains(env.Content, "10 billion") {
		t.Errorf("content = %q", env.Content)
	}
}

func TestExecuteSingleCollection(t *testing.T) {
	retr := newRetriever(t, map[string][]models.DocumentSearchResult{
		"visa":  {chunk("v1", "visa content", 0.9)},
		"legal": {chunk("l1", "legal content", 0.8)},
	})
	tl := New(retr, Config{})

	result, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"anything","collection":"legal"}`))
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(result.Content), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Sources) != 1 || env.Sources[0].Collection != "legal" {
		t.Errorf("sources = %+v", env.Sources)
	}
}

func TestExecuteNoResults(t *testing.T) {
	retr := newRetriever(t, map[string][]models.DocumentSearchResult{"visa": nil})
	tl := New(retr, Config{})

	result, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"nothing matches"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Content, "no relevant documents") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestExecuteMissingQuery(t *testing.T) {
	tl := New(newRetriever(t, nil), Config{})
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{}`))
	if !result.IsError {
		t.Error("missing query must be an error result")
	}
}
