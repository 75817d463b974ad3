// Package retrieval implements the hybrid (dense + sparse + graph) search
// layer: a CollectionManager that lazily opens and caches per-collection
// store clients under bounded concurrency, and a HybridRetriever that
// federates a query across many collections at once.
package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
	"golang.org/x/sync/semaphore"
)

// Collection is a single named document store a query can be federated
// against.
type Collection interface {
	Name() string
	Search(ctx context.Context, opts SearchOptions) ([]models.DocumentSearchResult, error)
	Close() error
}

// SearchOptions parameterize a single collection's search call.
type SearchOptions struct {
	Query     string
	Limit     int
	Threshold float32
}

// CollectionManager owns the lifecycle of Collection clients: it opens
// them lazily from config, caches them for reuse, and bounds how many
// collections may be read concurrently so a single federated query can't
// exhaust downstream connection pools.
type CollectionManager struct {
	mu          sync.RWMutex
	collections map[string]Collection
	configs     map[string]config.CollectionConfig
	opener      func(name string, cfg config.CollectionConfig) (Collection, error)

	readSem *semaphore.Weighted
	writes  *collectionLocker
}

// NewCollectionManager creates a manager over the named collections in
// cfg. opener constructs the backend-specific client for a collection the
// first time it's needed; supplying it here (rather than hardcoding
// pgvector/sqlite-vec/lancedb selection inline) keeps the manager
// testable with a fake opener.
func NewCollectionManager(cfg config.RetrievalConfig, opener func(name string, cc config.CollectionConfig) (Collection, error)) *CollectionManager {
	maxReads := cfg.MaxConcurrentReads
	if maxReads <= 0 {
		maxReads = 20
	}
	return &CollectionManager{
		collections: make(map[string]Collection),
		configs:     cfg.Collections,
		opener:      opener,
		readSem:     semaphore.NewWeighted(maxReads),
		writes:      newCollectionLocker(cfg.WriteLockTimeout),
	}
}

// Resolve maps a name or configured alias to the canonical collection
// name, or returns name unchanged when nothing matches.
func (m *CollectionManager) Resolve(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.configs[name]; ok {
		return name
	}
	for canonical, cc := range m.configs {
		if cc.Alias != "" && cc.Alias == name {
			return canonical
		}
	}
	return name
}

// Names returns every configured collection name.
func (m *CollectionManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	return names
}

// get lazily opens (and caches) the client for a collection.
func (m *CollectionManager) get(name string) (Collection, error) {
	m.mu.RLock()
	if c, ok := m.collections[name]; ok {
		m.mu.RUnlock()
		return c, nil
	}
	cc, ok := m.configs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("retrieval: unknown collection %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		return c, nil
	}
	c, err := m.opener(name, cc)
	if err != nil {
		return nil, fmt.Errorf("retrieval: open collection %q: %w", name, err)
	}
	m.collections[name] = c
	return c, nil
}

// SearchOne acquires a read slot and searches a single collection,
// blocking until a slot is free or ctx is cancelled. name may be an
// alias.
func (m *CollectionManager) SearchOne(ctx context.Context, name string, opts SearchOptions) ([]models.DocumentSearchResult, error) {
	if err := m.readSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.readSem.Release(1)

	c, err := m.get(m.Resolve(name))
	if err != nil {
		return nil, err
	}
	return c.Search(ctx, opts)
}

// WithWriteLock runs fn while holding the named collection's write lock,
// guarding index rebuilds against concurrent upserts.
func (m *CollectionManager) WithWriteLock(name string, fn func() error) error {
	name = m.Resolve(name)
	if err := m.writes.Lock(name); err != nil {
		return err
	}
	defer m.writes.Unlock(name)
	return fn()
}

// Close closes every opened collection client.
func (m *CollectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, c := range m.collections {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
