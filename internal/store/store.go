// Package store defines the persistence contracts the core depends on
// without naming a concrete database. Concrete implementations (Postgres
// today) live in subpackages so the collective memory service and memory
// orchestrator can be tested against in-memory fakes, the way
// internal/sessions.Store is faked in internal/sessions/memory.go.
package store

import (
	"context"
	"time"

	"github.com/baliwise/ragcore/pkg/models"
)

// FactRow is the persisted row shape for a collective fact, including the
// fields the service needs to recompute counts and confidence.
type FactRow struct {
	ID               string
	Content          string
	ContentHash      string
	Category         string
	Confidence       float64
	SourceCount      int
	IsPromoted       bool
	FirstLearnedAt   time.Time
	LastConfirmedAt  time.Time
	Metadata         map[string]any
}

// CollectiveMemoryStore is the persistence contract for collective facts.
type CollectiveMemoryStore interface {
	// GetByHash returns the fact row for contentHash, or ok=false if none
	// exists yet. Must be called inside a transaction that also locks the
	// row (or confirms its absence) for the duration of the write.
	GetByHash(ctx context.Context, contentHash string) (row FactRow, ok bool, err error)

	// Insert creates a new fact row with source_count=1 and a single
	// "contribute" contribution from userID.
	Insert(ctx context.Context, row FactRow, userID string) error

	// HasContribution reports whether userID already has a contribution
	// row for factID with the given action.
	HasContribution(ctx context.Context, factID, userID string, action models.ContributionAction) (bool, error)

	// AddContributionRow inserts a contribution row and returns the
	// recomputed distinct count of {contribute, confirm} contributors.
	AddContributionRow(ctx context.Context, factID, userID string, action models.ContributionAction) (sourceCount int, err error)

	// SetPromoted flips is_promoted for factID.
	SetPromoted(ctx context.Context, factID string, promoted bool) error

	// ConfidenceCounts returns the number of contribute/confirm rows and
	// the number of refute rows for factID, used to recompute confidence.
	ConfidenceCounts(ctx context.Context, factID string) (positive, negative int, err error)

	// SetConfidence updates a fact's stored confidence value.
	SetConfidence(ctx context.Context, factID string, confidence float64) error

	// Delete removes a fact and its contributions entirely.
	Delete(ctx context.Context, factID string) error

	// GetPromoted returns up to limit promoted facts, optionally filtered
	// by category, ordered by (confidence desc, source_count desc).
	GetPromoted(ctx context.Context, category string, limit int) ([]models.CollectiveFact, error)

	// WithLock runs fn with an exclusive row-level lock held for the fact
	// with contentHash (or confirms its absence), so the whole
	// read-modify-write contribution sequence is atomic against concurrent
	// contributions (SELECT ... FOR UPDATE in the SQL implementation).
	WithLock(ctx context.Context, contentHash string, fn func(ctx context.Context) error) error

	// WithLockByID is WithLock keyed by fact id instead of content hash,
	// for operations like refutation that start from a known fact id.
	WithLockByID(ctx context.Context, factID string, fn func(ctx context.Context) error) error
}
