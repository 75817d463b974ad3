package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/baliwise/ragcore/pkg/models"
)

// InMemoryCollectiveStore is a mutex-guarded CollectiveMemoryStore for
// tests and local runs without Postgres, mirroring
// internal/sessions.MemoryStore's role for session persistence.
type InMemoryCollectiveStore struct {
	mu            sync.Mutex
	rows          map[string]FactRow
	byHash        map[string]string
	contributions map[contribKey]bool

	// lockMu serializes WithLock/WithLockByID critical sections the way
	// the Postgres implementation's row lock does.
	lockMu sync.Mutex
}

type contribKey struct {
	factID string
	userID string
	action models.ContributionAction
}

// NewInMemoryCollectiveStore creates an empty InMemoryCollectiveStore.
func NewInMemoryCollectiveStore() *InMemoryCollectiveStore {
	return &InMemoryCollectiveStore{
		rows:          map[string]FactRow{},
		byHash:        map[string]string{},
		contributions: map[contribKey]bool{},
	}
}

func (s *InMemoryCollectiveStore) GetByHash(ctx context.Context, contentHash string) (FactRow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byHash[contentHash]
	if !ok {
		return FactRow{}, false, nil
	}
	return s.rows[id], true, nil
}

func (s *InMemoryCollectiveStore) Insert(ctx context.Context, row FactRow, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = uuid.NewString()
	row.SourceCount = 1
	s.rows[row.ID] = row
	s.byHash[row.ContentHash] = row.ID
	s.contributions[contribKey{row.ID, userID, models.ActionContribute}] = true
	return nil
}

func (s *InMemoryCollectiveStore) HasContribution(ctx context.Context, factID, userID string, action models.ContributionAction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contributions[contribKey{factID, userID, action}], nil
}

func (s *InMemoryCollectiveStore) AddContributionRow(ctx context.Context, factID, userID string, action models.ContributionAction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions[contribKey{factID, userID, action}] = true

	distinct := map[string]bool{}
	for key := range s.contributions {
		if key.factID == factID && (key.action == models.ActionContribute || key.action == models.ActionConfirm) {
			distinct[key.userID] = true
		}
	}
	row := s.rows[factID]
	row.SourceCount = len(distinct)
	s.rows[factID] = row
	return row.SourceCount, nil
}

func (s *InMemoryCollectiveStore) SetPromoted(ctx context.Context, factID string, promoted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[factID]
	row.IsPromoted = promoted
	s.rows[factID] = row
	return nil
}

func (s *InMemoryCollectiveStore) ConfidenceCounts(ctx context.Context, factID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pos, neg int
	for key := range s.contributions {
		if key.factID != factID {
			continue
		}
		if key.action == models.ActionRefute {
			neg++
		} else {
			pos++
		}
	}
	return pos, neg, nil
}

func (s *InMemoryCollectiveStore) SetConfidence(ctx context.Context, factID string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[factID]
	row.Confidence = confidence
	s.rows[factID] = row
	return nil
}

func (s *InMemoryCollectiveStore) Delete(ctx context.Context, factID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[factID]
	if ok {
		delete(s.byHash, row.ContentHash)
	}
	delete(s.rows, factID)
	return nil
}

func (s *InMemoryCollectiveStore) GetPromoted(ctx context.Context, category string, limit int) ([]models.CollectiveFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CollectiveFact
	for _, row := range s.rows {
		if !row.IsPromoted {
			continue
		}
		if category != "" && row.Category != category {
			continue
		}
		out = append(out, models.CollectiveFact{
			ID: row.ID, Content: row.Content, ContentHash: row.ContentHash,
			Category: row.Category, Confidence: row.Confidence, SourceCount: row.SourceCount,
			IsPromoted: row.IsPromoted,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].SourceCount > out[j].SourceCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryCollectiveStore) WithLock(ctx context.Context, contentHash string, fn func(ctx context.Context) error) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return fn(ctx)
}

func (s *InMemoryCollectiveStore) WithLockByID(ctx context.Context, factID string, fn func(ctx context.Context) error) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return fn(ctx)
}

var _ CollectiveMemoryStore = (*InMemoryCollectiveStore)(nil)
