package config

import "time"

// RetrievalConfig configures the collection manager and hybrid retriever.
type RetrievalConfig struct {
	Collections map[string]CollectionConfig `yaml:"collections"`

	// MaxConcurrentReads bounds how many collection searches may run at
	// once. It is one semaphore shared by every collection and every
	// query, not a separate bound per collection.
	MaxConcurrentReads int64 `yaml:"max_concurrent_reads"`

	// WriteLockTimeout bounds how long an indexing write waits for the
	// per-collection write lock before giving up.
	WriteLockTimeout time.Duration `yaml:"write_lock_timeout"`

	DenseWeight  float64 `yaml:"dense_weight"`
	SparseWeight float64 `yaml:"sparse_weight"`
	GraphWeight  float64 `yaml:"graph_weight"`

	// DedupPrefixChars is how many leading characters of normalized chunk
	// content are compared when deduplicating federated search results.
	DedupPrefixChars int `yaml:"dedup_prefix_chars"`
}

// CollectionConfig describes one named vector collection.
type CollectionConfig struct {
	Backend   string `yaml:"backend"` // pgvector
	DSN       string `yaml:"dsn"`
	Dimension int    `yaml:"dimension"`

	// Alias is an alternate name that resolves to this collection at
	// lookup time.
	Alias string `yaml:"alias"`

	// Priority orders collections when trimming federated results:
	// high, medium, or low.
	Priority string `yaml:"priority"`

	// ApproxDocCount is the advertised corpus size, used for routing
	// hints and diagnostics only.
	ApproxDocCount int    `yaml:"approx_doc_count"`
	Description    string `yaml:"description"`
}

func applyRetrievalDefaults(cfg *RetrievalConfig) {
	if cfg.MaxConcurrentReads == 0 {
		cfg.MaxConcurrentReads = 20
	}
	if cfg.WriteLockTimeout == 0 {
		cfg.WriteLockTimeout = 30 * time.Second
	}
	if cfg.DenseWeight == 0 && cfg.SparseWeight == 0 && cfg.GraphWeight == 0 {
		cfg.DenseWeight, cfg.SparseWeight, cfg.GraphWeight = 0.6, 0.3, 0.1
	}
	if cfg.DedupPrefixChars == 0 {
		cfg.DedupPrefixChars = 100
	}
}
