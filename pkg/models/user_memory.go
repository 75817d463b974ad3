package models

import "time"

// UserProfile is the durable identity record the memory orchestrator
// attaches to a user id: name/role/department plus persona flags the
// prompt builder reads to decide which overlay to prepend.
type UserProfile struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	Department   string `json:"department,omitempty"`
	Email        string `json:"email,omitempty"`
	IsCreator    bool   `json:"is_creator"`
	IsTeamMember bool   `json:"is_team_member"`

	ConversationCount int       `json:"conversation_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UserFact is a single piece of knowledge the orchestrator has learned
// about a user from prior conversations.
type UserFact struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	Type       string    `json:"type,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TimelineEvent is an episodic summary of a single conversation turn,
// kept so the orchestrator can assemble a "timeline_summary" without
// replaying raw message history.
type TimelineEvent struct {
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// KGEntity is a named entity surfaced from the knowledge graph tool,
// attached to user context when relevant.
type KGEntity struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UserContext is the composite per-query context the memory orchestrator
// assembles: profile, recent history, personal facts, promoted collective
// facts, a rolled-up timeline summary, and any relevant graph entities.
type UserContext struct {
	UserID           string          `json:"user_id"`
	Profile          *UserProfile    `json:"profile,omitempty"`
	History          []Message       `json:"history,omitempty"`
	Facts            []UserFact      `json:"facts,omitempty"`
	CollectiveFacts  []CollectiveFact `json:"collective_facts,omitempty"`
	TimelineSummary  string          `json:"timeline_summary,omitempty"`
	KGEntities       []KGEntity      `json:"kg_entities,omitempty"`
}

// ExtractedFact is one candidate fact produced by the fact extractor from
// a single conversation turn, before it is deduplicated and persisted.
type ExtractedFact struct {
	Content    string  `json:"content"`
	Type       string  `json:"type,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// ProcessResult reports the outcome of processing one conversation turn
// through the memory orchestrator.
type ProcessResult struct {
	FactsExtracted   int     `json:"facts_extracted"`
	FactsSaved       int     `json:"facts_saved"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	Success          bool    `json:"success"`
}
