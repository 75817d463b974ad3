// Package teamknowledge implements the team_knowledge tool: typed lookups
// over the company's team roster (who does what, who speaks which
// language, who to contact for a given service area).
package teamknowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baliwise/ragcore/internal/tool"
)

// Member is one team roster record.
type Member struct {
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Department string   `json:"department,omitempty"`
	Email      string   `json:"email,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// Tool implements tool.Tool over a static roster supplied at startup.
type Tool struct {
	roster []Member
}

// New creates a team_knowledge tool over roster.
func New(roster []Member) *Tool {
	return &Tool{roster: roster}
}

func (t *Tool) Name() string { return "team_knowledge" }

func (t *Tool) Description() string {
	return "Looks up team members: list everyone, or search by role, name, or email."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query_type": {"type": "string", "enum": ["list_all", "search_by_role", "search_by_name", "search_by_email"], "description": "Kind of lookup"},
    "search_term": {"type": "string", "description": "Role, name, or email fragment to match (unused for list_all)"}
  },
  "required": ["query_type"]
}`)
}

type input struct {
	QueryType  string `json:"query_type"`
	SearchTerm string `json:"search_term,omitempty"`
}

func (t *Tool) Execute(_ context.Context, params json.RawMessage) (*tool.Result, error) {
	var in input
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}

	term := strings.ToLower(strings.TrimSpace(in.SearchTerm))
	var matches []Member

	switch in.QueryType {
	case "list_all":
		matches = t.roster
	case "search_by_role":
		matches = t.filter(func(m Member) string { return m.Role + " " + m.Department }, term)
	case "search_by_name":
		matches = t.filter(func(m Member) string { return m.Name }, term)
	case "search_by_email":
		matches = t.filter(func(m Member) string { return m.Email }, term)
	default:
		return &tool.Result{Content: fmt.Sprintf("unknown query_type %q", in.QueryType), IsError: true}, nil
	}

	if in.QueryType != "list_all" && term == "" {
		return &tool.Result{Content: "search_term is required for " + in.QueryType, IsError: true}, nil
	}
	if len(matches) == 0 {
		return &tool.Result{Content: "no team members matched"}, nil
	}

	payload, err := json.MarshalIndent(struct {
		Count   int      `json:"count"`
		Members []Member `json:"members"`
	}{Count: len(matches), Members: matches}, "", "  ")
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("failed to format roster: %v", err), IsError: true}, nil
	}
	return &tool.Result{Content: string(payload)}, nil
}

func (t *Tool) filter(field func(Member) string, term string) []Member {
	if term == "" {
		return nil
	}
	var out []Member
	for _, m := range t.roster {
		if strings.Contains(strings.ToLower(field(m)), term) {
			out = append(out, m)
		}
	}
	return out
}
