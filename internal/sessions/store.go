// Package sessions persists conversation sessions and their message
// history, and hands out the per-key write locks the memory layer uses
// to serialize writes for a single user.
package sessions

import (
	"context"

	"github.com/baliwise/ragcore/pkg/models"
)

// Store persists sessions and their messages. The memory orchestrator
// reads history through it; the embedding host owns session creation.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error

	// GetByKey and GetOrCreate look sessions up by their stable key.
	GetByKey(ctx context.Context, key string) (*models.Session, error)
	GetOrCreate(ctx context.Context, key string, userID string) (*models.Session, error)

	// List returns a user's sessions, newest ordering unspecified.
	List(ctx context.Context, userID string, opts ListOptions) ([]*models.Session, error)

	// AppendMessage records one turn; GetHistory returns the most recent
	// limit messages in one query.
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
}

// ListOptions pages List results.
type ListOptions struct {
	Limit  int
	Offset int
}

// SessionKey builds the stable key for a user's named conversation.
func SessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}
