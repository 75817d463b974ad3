package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baliwise/ragcore/pkg/models"
)

// ErrSessionNotFound is returned for lookups of unknown session ids or keys.
var ErrSessionNotFound = errors.New("sessions: session not found")

// maxMessagesPerSession bounds stored history per session; older messages
// are trimmed once the cap is exceeded.
const maxMessagesPerSession = 1000

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	byKey    map[string]string
	messages map[string][]*models.Message
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]*models.Session{},
		byKey:    map[string]string{},
		messages: map[string][]*models.Message{},
	}
}

func (m *MemoryStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("sessions: session is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = session.CreatedAt

	stored := *session
	m.sessions[stored.ID] = &stored
	if stored.Key != "" {
		m.byKey[stored.Key] = stored.ID
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

func (m *MemoryStore) Update(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("sessions: session is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[session.ID]
	if !ok {
		return ErrSessionNotFound
	}
	stored := *session
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	m.sessions[stored.ID] = &stored
	if stored.Key != "" {
		m.byKey[stored.Key] = stored.ID
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	if session.Key != "" {
		delete(m.byKey, session.Key)
	}
	delete(m.messages, id)
	return nil
}

func (m *MemoryStore) GetByKey(ctx context.Context, key string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := *m.sessions[id]
	return &session, nil
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, key string, userID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[key]; ok {
		session := *m.sessions[id]
		return &session, nil
	}

	now := time.Now()
	session := &models.Session{ID: uuid.NewString(), UserID: userID, Key: key, CreatedAt: now, UpdatedAt: now}
	m.sessions[session.ID] = session
	m.byKey[key] = session.ID
	out := *session
	return &out, nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, opts ListOptions) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.Session{}
	for _, session := range m.sessions {
		if userID != "" && session.UserID != userID {
			continue
		}
		clone := *session
		out = append(out, &clone)
	}

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > len(out) {
		return []*models.Session{}, nil
	}
	end := len(out)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return out[start:end], nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	if msg == nil {
		return errors.New("sessions: message is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	history := append(m.messages[sessionID], &stored)
	if len(history) > maxMessagesPerSession {
		history = history[len(history)-maxMessagesPerSession:]
	}
	m.messages[sessionID] = history
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.messages[sessionID]
	start := 0
	if limit > 0 && len(history) > limit {
		start = len(history) - limit
	}
	out := make([]*models.Message, 0, len(history)-start)
	for _, msg := range history[start:] {
		clone := *msg
		out = append(out, &clone)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
