// Package collective implements the cross-user knowledge pool:
// deduplicated fact contribution, confirmation, and refutation, with
// facts promoted into shared context once enough distinct users have
// corroborated them and deleted once refutations sink their confidence.
package collective

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/baliwise/ragcore/internal/store"
	"github.com/baliwise/ragcore/pkg/models"
)

// Config bounds promotion and refutation behavior.
type Config struct {
	// PromotionThreshold is the number of distinct contributing users
	// required before a fact enters collective context.
	PromotionThreshold int

	// RefutationConfidenceFloor is the confidence below which a refuted
	// fact is deleted outright.
	RefutationConfidenceFloor float64
}

// Service is the cross-user collective memory pool: facts that have been
// independently corroborated by enough distinct users are promoted into
// the shared context every query can draw on.
type Service struct {
	store store.CollectiveMemoryStore
	cfg   Config
}

// New creates a Service backed by st.
func New(st store.CollectiveMemoryStore, cfg Config) *Service {
	if cfg.PromotionThreshold <= 0 {
		cfg.PromotionThreshold = 3
	}
	if cfg.RefutationConfidenceFloor <= 0 {
		cfg.RefutationConfidenceFloor = 0.2
	}
	return &Service{store: st, cfg: cfg}
}

// ContentHash computes the stable dedup key for a fact's content: sha256
// of the lowercased, trimmed text, hex-encoded.
func ContentHash(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ContributionResult reports the outcome of a single contribution.
type ContributionResult struct {
	FactID      string
	SourceCount int
	IsPromoted  bool
	Created     bool // true if this call created the fact row
}

// AddContribution records userID's contribution of content under category.
// If the fact already exists and userID has not yet contributed or
// confirmed it, this inserts a "confirm" row, recounts distinct
// contributors, and atomically promotes the fact once the recount
// crosses the promotion threshold. If the fact does not exist, it is
// created with source_count=1 and a "contribute" row. The whole
// read-modify-write sequence runs under the store's row-level lock so
// concurrent contributions to the same fact serialize correctly.
func (s *Service) AddContribution(ctx context.Context, userID, content, category string, metadata map[string]any) (ContributionResult, error) {
	if s == nil || s.store == nil {
		return ContributionResult{}, fmt.Errorf("collective: service not configured")
	}
	userID = strings.TrimSpace(userID)
	content = strings.TrimSpace(content)
	if userID == "" || content == "" {
		return ContributionResult{}, fmt.Errorf("collective: user_id and content are required")
	}
	hash := ContentHash(content)

	var result ContributionResult
	err := s.store.WithLock(ctx, hash, func(ctx context.Context) error {
		row, ok, err := s.store.GetByHash(ctx, hash)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.store.Insert(ctx, store.FactRow{
				Content:        content,
				ContentHash:    hash,
				Category:       category,
				Confidence:     1.0,
				FirstLearnedAt: time.Now(),
				Metadata:       metadata,
			}, userID); err != nil {
				return err
			}
			row, _, err = s.store.GetByHash(ctx, hash)
			if err != nil {
				return err
			}
			promoted := 1 >= s.cfg.PromotionThreshold
			if promoted {
				if err := s.store.SetPromoted(ctx, row.ID, true); err != nil {
					return err
				}
			}
			result = ContributionResult{FactID: row.ID, SourceCount: 1, IsPromoted: promoted, Created: true}
			return nil
		}

		alreadyContributed, err := s.store.HasContribution(ctx, row.ID, userID, models.ActionContribute)
		if err != nil {
			return err
		}
		alreadyConfirmed := alreadyContributed
		if !alreadyContributed {
			alreadyConfirmed, err = s.store.HasContribution(ctx, row.ID, userID, models.ActionConfirm)
			if err != nil {
				return err
			}
		}

		count := row.SourceCount
		if !alreadyConfirmed {
			count, err = s.store.AddContributionRow(ctx, row.ID, userID, models.ActionConfirm)
			if err != nil {
				return err
			}
		}

		promoted := count >= s.cfg.PromotionThreshold
		if promoted != row.IsPromoted {
			if err := s.store.SetPromoted(ctx, row.ID, promoted); err != nil {
				return err
			}
		}
		result = ContributionResult{FactID: row.ID, SourceCount: count, IsPromoted: promoted}
		return nil
	})
	return result, err
}

// RefuteFact records an idempotent refutation from userID against
// memoryID, recomputes confidence from the contribution rows, and deletes
// the fact outright if confidence falls below the configured floor.
func (s *Service) RefuteFact(ctx context.Context, userID, memoryID string) (confidence float64, deleted bool, err error) {
	if s == nil || s.store == nil {
		return 0, false, fmt.Errorf("collective: service not configured")
	}
	err = s.store.WithLockByID(ctx, memoryID, func(ctx context.Context) error {
		already, err := s.store.HasContribution(ctx, memoryID, userID, models.ActionRefute)
		if err != nil {
			return err
		}
		if !already {
			if _, err := s.store.AddContributionRow(ctx, memoryID, userID, models.ActionRefute); err != nil {
				return err
			}
		}

		positive, negative, err := s.store.ConfidenceCounts(ctx, memoryID)
		if err != nil {
			return err
		}
		confidence = smoothedConfidence(positive, negative)

		if confidence < s.cfg.RefutationConfidenceFloor {
			if err := s.store.Delete(ctx, memoryID); err != nil {
				return err
			}
			deleted = true
			return nil
		}
		return s.store.SetConfidence(ctx, memoryID, confidence)
	})
	return confidence, deleted, err
}

// smoothedConfidence is contributes/(contributes+refutes) with a
// Laplace-style +1/+2 smoothing term so a single early refutation doesn't
// immediately zero out a fact's confidence.
func smoothedConfidence(positive, negative int) float64 {
	return (float64(positive) + 1) / (float64(positive) + float64(negative) + 2)
}

// GetCollectiveContext returns up to limit promoted facts, optionally
// filtered by category, ordered by (confidence desc, source_count desc).
func (s *Service) GetCollectiveContext(ctx context.Context, category string, limit int) ([]models.CollectiveFact, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.store.GetPromoted(ctx, category, limit)
}
