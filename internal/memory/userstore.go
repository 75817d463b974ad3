package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baliwise/ragcore/pkg/models"
)

// UserStore persists per-user profile, facts, and timeline events for the
// Orchestrator. Conversation history itself lives in
// internal/sessions.Store and is fetched separately; UserStore only
// covers the memory-specific state the orchestrator adds on top.
type UserStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	IncrementConversationCount(ctx context.Context, userID string) error

	// ListFacts returns every fact stored for userID.
	ListFacts(ctx context.Context, userID string) ([]models.UserFact, error)

	// AddFact stores fact for userID unless a fact with the same
	// normalized content already exists, in which case it's a no-op and
	// added reports false.
	AddFact(ctx context.Context, userID string, fact models.ExtractedFact) (added bool, err error)

	// AddTimelineEvent appends an episodic summary of one turn.
	AddTimelineEvent(ctx context.Context, userID, summary string) error

	// TimelineSummary returns a rolled-up summary of the most recent
	// events (at most limit), oldest first.
	TimelineSummary(ctx context.Context, userID string, limit int) (string, error)
}

// InMemoryUserStore is a sync.Mutex-guarded UserStore for tests and local
// runs without a database, mirroring internal/sessions.MemoryStore.
type InMemoryUserStore struct {
	mu        sync.Mutex
	profiles  map[string]*models.UserProfile
	facts     map[string][]models.UserFact
	timelines map[string][]models.TimelineEvent
}

// NewInMemoryUserStore creates an empty InMemoryUserStore.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		profiles:  map[string]*models.UserProfile{},
		facts:     map[string][]models.UserFact{},
		timelines: map[string][]models.TimelineEvent{},
	}
}

func (s *InMemoryUserStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *InMemoryUserStore) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *profile
	clone.UpdatedAt = time.Now()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = clone.UpdatedAt
	}
	s.profiles[profile.UserID] = &clone
	return nil
}

func (s *InMemoryUserStore) IncrementConversationCount(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = &models.UserProfile{UserID: userID, CreatedAt: time.Now()}
		s.profiles[userID] = p
	}
	p.ConversationCount++
	p.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryUserStore) ListFacts(ctx context.Context, userID string) ([]models.UserFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserFact, len(s.facts[userID]))
	copy(out, s.facts[userID])
	return out, nil
}

func (s *InMemoryUserStore) AddFact(ctx context.Context, userID string, fact models.ExtractedFact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := strings.ToLower(strings.TrimSpace(fact.Content))
	for _, existing := range s.facts[userID] {
		if strings.ToLower(strings.TrimSpace(existing.Content)) == normalized {
			return false, nil
		}
	}
	s.facts[userID] = append(s.facts[userID], models.UserFact{
		ID:         uuid.NewString(),
		UserID:     userID,
		Content:    fact.Content,
		Type:       fact.Type,
		Confidence: fact.Confidence,
		Source:     fact.Source,
		CreatedAt:  time.Now(),
	})
	return true, nil
}

func (s *InMemoryUserStore) AddTimelineEvent(ctx context.Context, userID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelines[userID] = append(s.timelines[userID], models.TimelineEvent{
		UserID: userID, Summary: summary, CreatedAt: time.Now(),
	})
	return nil
}

func (s *InMemoryUserStore) TimelineSummary(ctx context.Context, userID string, limit int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.timelines[userID]
	if len(events) == 0 {
		return "", nil
	}
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	recent := events[len(events)-limit:]
	lines := make([]string, len(recent))
	for i, e := range recent {
		lines[i] = e.Summary
	}
	return strings.Join(lines, "\n"), nil
}

var _ UserStore = (*InMemoryUserStore)(nil)
