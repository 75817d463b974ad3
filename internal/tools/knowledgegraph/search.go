// Package knowledgegraph implements the knowledge_graph_search tool:
// typed relationship lookups over the curated entity graph (visa types,
// regulations, agencies, requirements).
package knowledgegraph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baliwise/ragcore/internal/tool"
)

// Relationship is one typed edge in the graph.
type Relationship struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// Store answers entity lookups. The production implementation is
// Postgres-backed; tests supply a fake.
type Store interface {
	Lookup(ctx context.Context, entity string, limit int) ([]Relationship, error)
}

// SQLStore reads relationships from the kg_relationships table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Lookup(ctx context.Context, entity string, limit int) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, predicate, object, confidence
		FROM kg_relationships
		WHERE lower(subject) = lower($1) OR lower(object) = lower($1)
		ORDER BY confidence DESC
		LIMIT $2`, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledgegraph: lookup %q: %w", entity, err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.Subject, &r.Predicate, &r.Object, &r.Confidence); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tool implements tool.Tool over a Store.
type Tool struct {
	store Store
	limit int
}

// New creates a knowledge_graph_search tool.
func New(store Store, limit int) *Tool {
	if limit <= 0 {
		limit = 15
	}
	return &Tool{store: store, limit: limit}
}

func (t *Tool) Name() string { return "knowledge_graph_search" }

func (t *Tool) Description() string {
	return "Looks up structured relationships for an entity (visa type, regulation, agency) in the knowledge graph."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "entity": {"type": "string", "description": "The entity to look up, e.g. a visa code or agency name"},
    "query": {"type": "string", "description": "Free-text alternative to entity"}
  }
}`)
}

type input struct {
	Entity string `json:"entity,omitempty"`
	Query  string `json:"query,omitempty"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	if t.store == nil {
		return &tool.Result{Content: "knowledge graph is not configured", IsError: true}, nil
	}
	var in input
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	entity := strings.TrimSpace(in.Entity)
	if entity == "" {
		entity = strings.TrimSpace(in.Query)
	}
	if entity == "" {
		return &tool.Result{Content: "entity or query is required", IsError: true}, nil
	}

	rels, err := t.store.Lookup(ctx, entity, t.limit)
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("graph lookup failed: %v", err), IsError: true}, nil
	}
	if len(rels) == 0 {
		return &tool.Result{Content: fmt.Sprintf("no graph relationships found for %q", entity)}, nil
	}

	payload, err := json.Marshal(struct {
		Entity        string         `json:"entity"`
		Relationships []Relationship `json:"relationships"`
	}{Entity: entity, Relationships: rels})
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("failed to format relationships: %v", err), IsError: true}, nil
	}
	return &tool.Result{Content: string(payload)}, nil
}
