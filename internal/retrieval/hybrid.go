package retrieval

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

// RetrievedChunk is a single federated search hit, tagged with the
// collection it came from so callers can attribute sources.
type RetrievedChunk struct {
	Collection string
	Result     models.DocumentSearchResult
}

// HybridRetriever federates a query across every (or a chosen subset of)
// configured collections at once, merges the results by score, and
// deduplicates near-identical chunks surfaced by more than one
// collection. Each collection's own Search implementation is responsible
// for combining dense, sparse, and graph signals; this type only owns the
// fan-out, merge, and dedup across collections.
type HybridRetriever struct {
	manager          *CollectionManager
	dedupPrefixChars int
}

// NewHybridRetriever creates a HybridRetriever over manager.
func NewHybridRetriever(manager *CollectionManager, cfg config.RetrievalConfig) *HybridRetriever {
	prefix := cfg.DedupPrefixChars
	if prefix <= 0 {
		prefix = 100
	}
	return &HybridRetriever{manager: manager, dedupPrefixChars: prefix}
}

// FederatedSearchOptions parameterize a multi-collection search.
type FederatedSearchOptions struct {
	Query string
	// Collections restricts the search to these names. Empty means every
	// collection the manager knows about.
	Collections []string
	// TopK is the number of merged, deduplicated results to return.
	TopK int
	// PerCollectionLimit bounds how many candidates each collection
	// contributes before merging; defaults to TopK when zero.
	PerCollectionLimit int
	Threshold          float32
}

// Search runs opts.Query against every requested collection concurrently,
// merges the results by descending score, deduplicates chunks whose
// normalized content fingerprint matches one already kept, and returns the
// top TopK. A failure in one collection does not fail the whole search;
// it is swallowed so a single broken backend can't take down a federated
// query. If every collection fails, the first error encountered is
// returned alongside a nil result.
func (h *HybridRetriever) Search(ctx context.Context, opts FederatedSearchOptions) ([]RetrievedChunk, error) {
	names := opts.Collections
	if len(names) == 0 {
		names = h.manager.Names()
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	perCollection := opts.PerCollectionLimit
	if perCollection <= 0 {
		perCollection = topK
	}

	var (
		mu       sync.Mutex
		gathered []RetrievedChunk
		firstErr error
		anyOK    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			results, err := h.manager.SearchOne(gctx, name, SearchOptions{
				Query:     opts.Query,
				Limit:     perCollection,
				Threshold: opts.Threshold,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			anyOK = true
			for _, r := range results {
				gathered = append(gathered, RetrievedChunk{Collection: name, Result: r})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !anyOK && firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(gathered, func(i, j int) bool {
		return gathered[i].Result.Score > gathered[j].Result.Score
	})

	deduped := h.dedupe(gathered)
	if len(deduped) > topK {
		deduped = deduped[:topK]
	}
	return deduped, nil
}

// dedupe drops any chunk whose content fingerprint (sha1 of the
// lowercased, whitespace-trimmed first dedupPrefixChars characters)
// matches one already kept, preserving the incoming (score-sorted)
// order so the highest-scoring copy of a duplicated chunk wins.
func (h *HybridRetriever) dedupe(chunks []RetrievedChunk) []RetrievedChunk {
	seen := make(map[string]bool, len(chunks))
	out := make([]RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Result.Chunk == nil {
			out = append(out, c)
			continue
		}
		fp := h.fingerprint(c.Result.Chunk.Content)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, c)
	}
	return out
}

func (h *HybridRetriever) fingerprint(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	if len(normalized) > h.dedupPrefixChars {
		normalized = normalized[:h.dedupPrefixChars]
	}
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
