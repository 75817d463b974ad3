package retrieval

import (
	"context"
	"testing"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

type fakeCollection struct {
	name    string
	results []models.DocumentSearchResult
	err     error
}

func (f *fakeCollection) Name() string { return f.name }

func (f *fakeCollection) Search(ctx context.Context, opts SearchOptions) ([]models.DocumentSearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeCollection) Close() error { return nil }

func chunkResult(id, content string, score float32) models.DocumentSearchResult {
	return models.DocumentSearchResult{
		Chunk: &models.DocumentChunk{ID: id, Content: content},
		Score: score,
	}
}

func newTestManager(t *testing.T, collections map[string]*fakeCollection) *CollectionManager {
	t.Helper()
	cfgs := map[string]config.CollectionConfig{}
	for name := range collections {
		cfgs[name] = config.CollectionConfig{Backend: "fake"}
	}
	return NewCollectionManager(config.RetrievalConfig{Collections: cfgs}, func(name string, cc config.CollectionConfig) (Collection, error) {
		return collections[name], nil
	})
}

func TestHybridRetrieverMergesByScore(t *testing.T) {
	mgr := newTestManager(t, map[string]*fakeCollection{
		"visa":    {name: "visa", results: []models.DocumentSearchResult{chunkResult("a", "KITAS rules", 0.4)}},
		"pricing": {name: "pricing", results: []models.DocumentSearchResult{chunkResult("b", "Service fees", 0.9)}},
	})
	hr := NewHybridRetriever(mgr, config.RetrievalConfig{})

	out, err := hr.Search(context.Background(), FederatedSearchOptions{Query: "fees", TopK: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].Result.Chunk.ID != "b" {
		t.Fatalf("expected highest-scoring result first, got %s", out[0].Result.Chunk.ID)
	}
}

func TestHybridRetrieverDedupesByFingerprint(t *testing.T) {
	dup := "Visa extensions must be filed before the current permit expires and processed within five business days."
	mgr := newTestManager(t, map[string]*fakeCollection{
		"visa":  {name: "visa", results: []models.DocumentSearchResult{chunkResult("a", dup, 0.95)}},
		"legal": {name: "legal", results: []models.DocumentSearchResult{chunkResult("b", dup, 0.5)}},
	})
	hr := NewHybridRetriever(mgr, config.RetrievalConfig{})

	out, err := hr.Search(context.Background(), FederatedSearchOptions{Query: "visa extension", TopK: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected duplicate chunk collapsed to 1 result, got %d", len(out))
	}
	if out[0].Result.Chunk.ID != "a" {
		t.Fatalf("expected the higher-scoring copy to survive, got %s", out[0].Result.Chunk.ID)
	}
}

func TestHybridRetrieverToleratesPartialFailure(t *testing.T) {
	mgr := newTestManager(t, map[string]*fakeCollection{
		"visa":   {name: "visa", results: []models.DocumentSearchResult{chunkResult("a", "ok", 0.7)}},
		"broken": {name: "broken", err: context.DeadlineExceeded},
	})
	hr := NewHybridRetriever(mgr, config.RetrievalConfig{})

	out, err := hr.Search(context.Background(), FederatedSearchOptions{Query: "q", TopK: 10})
	if err != nil {
		t.Fatalf("expected partial failure to be swallowed, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving result, got %d", len(out))
	}
}

func TestHybridRetrieverAllFail(t *testing.T) {
	mgr := newTestManager(t, map[string]*fakeCollection{
		"broken": {name: "broken", err: context.DeadlineExceeded},
	})
	hr := NewHybridRetriever(mgr, config.RetrievalConfig{})

	if _, err := hr.Search(context.Background(), FederatedSearchOptions{Query: "q", TopK: 10}); err == nil {
		t.Fatalf("expected error when every collection fails")
	}
}

func TestHybridRetrieverRespectsTopK(t *testing.T) {
	mgr := newTestManager(t, map[string]*fakeCollection{
		"visa": {name: "visa", results: []models.DocumentSearchResult{
			chunkResult("a", "one", 0.9),
			chunkResult("b", "two", 0.8),
			chunkResult("c", "three", 0.7),
		}},
	})
	hr := NewHybridRetriever(mgr, config.RetrievalConfig{})

	out, err := hr.Search(context.Background(), FederatedSearchOptions{Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(out))
	}
}
