package models

import "time"

// CollectiveFact is a fact that has accumulated enough independent
// contributions to be promoted into the cross-user knowledge pool.
type CollectiveFact struct {
	ID               string    `json:"id"`
	Category         string    `json:"category"`
	Content          string    `json:"content"`
	ContentHash      string    `json:"content_hash"`
	Confidence       float64   `json:"confidence"`
	SourceCount      int       `json:"source_count"`
	IsPromoted       bool      `json:"is_promoted"`
	FirstContributed time.Time `json:"first_contributed"`
	LastConfirmed    time.Time `json:"last_confirmed"`
}

// ContributionAction classifies a user's interaction with a CollectiveFact.
type ContributionAction string

const (
	ActionContribute ContributionAction = "contribute"
	ActionConfirm    ContributionAction = "confirm"
	ActionRefute     ContributionAction = "refute"
)

// FactContribution records one user's independent corroboration (or
// refutation) of a CollectiveFact. A fact is promoted once distinct
// contributors with action in {contribute, confirm} reach the promotion
// threshold. At most one (FactID, UserID, Action) triple may exist.
type FactContribution struct {
	FactID        string              `json:"fact_id"`
	UserID        string              `json:"user_id"`
	Action        ContributionAction  `json:"action"`
	ContributedAt time.Time           `json:"contributed_at"`
}
