package config

import "time"

// MemoryOrchestratorConfig configures the per-user memory layer: per-user
// facts, conversation summarization, and the locking that guards
// concurrent writes to a single user's memory.
type MemoryOrchestratorConfig struct {
	// MaxConcurrentReads bounds simultaneous GetUserContext calls. It is
	// one semaphore shared by all users, not a separate bound per user.
	MaxConcurrentReads int `yaml:"max_concurrent_reads"`

	// WriteLockTimeout bounds how long ProcessConversation waits for the
	// per-user write lock; on timeout it logs and returns an empty result
	// without writing anything.
	WriteLockTimeout time.Duration `yaml:"write_lock_timeout"`

	// AnonymousUserID is defaulted but not read: the memory orchestrator
	// always normalizes empty user ids to the constant memory.AnonymousUser.
	AnonymousUserID string `yaml:"anonymous_user_id"`

	MaxFactsPerUser int `yaml:"max_facts_per_user"`
}

// CollectiveMemoryConfig configures the cross-user knowledge pool.
type CollectiveMemoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// PromotionThreshold is the number of distinct contributing users
	// required before a fact is promoted into collective context.
	PromotionThreshold int `yaml:"promotion_threshold"`

	// RefutationConfidenceFloor is the confidence below which a refuted
	// fact is deleted outright rather than merely demoted.
	RefutationConfidenceFloor float64 `yaml:"refutation_confidence_floor"`

	ConfidenceDecayPerDay float64 `yaml:"confidence_decay_per_day"`
}

func applyMemoryOrchestratorDefaults(cfg *MemoryOrchestratorConfig) {
	if cfg.MaxConcurrentReads == 0 {
		cfg.MaxConcurrentReads = 10
	}
	if cfg.WriteLockTimeout == 0 {
		cfg.WriteLockTimeout = 5 * time.Second
	}
	if cfg.AnonymousUserID == "" {
		cfg.AnonymousUserID = "anonymous"
	}
	if cfg.MaxFactsPerUser == 0 {
		cfg.MaxFactsPerUser = 200
	}
}

func applyCollectiveMemoryDefaults(cfg *CollectiveMemoryConfig) {
	if cfg.PromotionThreshold == 0 {
		cfg.PromotionThreshold = 3
	}
	if cfg.RefutationConfidenceFloor == 0 {
		cfg.RefutationConfidenceFloor = 0.2
	}
	if cfg.ConfidenceDecayPerDay == 0 {
		cfg.ConfidenceDecayPerDay = 0.01
	}
}
