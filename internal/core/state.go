// Package core composes the whole query pipeline: the pre-retrieval gate
// cascade, entity extraction, the semantic cache, the context window
// manager, the ReAct reasoning loop, the response pipeline, and the
// blocking and streaming orchestrator APIs that tie them together.
package core

import (
	"time"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

// AgentState is the mutable per-query scratchpad the ReAct engine and the
// response pipeline write into. It is created when a query enters the
// orchestrator and discarded when the result is returned; nothing in it
// survives across queries.
type AgentState struct {
	Query      string
	UserID     string
	SessionID  string
	IntentType string

	CurrentStep int
	MaxSteps    int

	// Steps is the ordered Thought/Action/Observation trace. Entries are
	// append-only; a recorded step is never rewritten.
	Steps []models.Step

	// ContextGathered holds every observation text collected so far, in
	// retrieval order, for the final synthesis call and verification.
	ContextGathered []string

	// Sources accumulates retrieval citations across tool calls, in the
	// order they were produced.
	Sources []models.Source

	FinalAnswer       string
	ModelUsed         string
	VerificationScore float64
	EvidenceScore     float64

	Usage   models.TokenUsage
	Tracker llmgw.CostTracker

	StartedAt time.Time
	Timings   map[string]time.Duration
}

// NewAgentState initializes state for one query.
func NewAgentState(query models.Query, maxSteps int) *AgentState {
	if maxSteps <= 0 {
		maxSteps = 6
	}
	return &AgentState{
		Query:     query.Text,
		UserID:    query.UserID,
		SessionID: query.Session,
		MaxSteps:  maxSteps,
		StartedAt: time.Now(),
		Timings:   make(map[string]time.Duration),
	}
}

// AddStep appends a completed step to the trace.
func (s *AgentState) AddStep(step models.Step) {
	step.StepNumber = len(s.Steps) + 1
	step.At = time.Now()
	s.Steps = append(s.Steps, step)
}

// AddUsage folds one LLM call's token usage into the per-query totals.
func (s *AgentState) AddUsage(u models.TokenUsage) {
	s.Usage.Add(u)
}

// ContextText joins everything gathered so far into a single block for
// synthesis and verification prompts.
func (s *AgentState) ContextText() string {
	out := ""
	for i, c := range s.ContextGathered {
		if i > 0 {
			out += "\n\n"
		}
		out += c
	}
	return out
}
