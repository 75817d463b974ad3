package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

// LLM is the slice of the gateway the core pipeline needs. Declared here
// so the orchestrator, ReAct engine, response pipeline, and summarizer
// depend on an interface and concrete gateways are injected at
// construction; *llmgw.Gateway satisfies it.
type LLM interface {
	Send(ctx context.Context, messages []models.Message, systemPrompt string, tier string, enableTools bool, tools []llmgw.ToolDef, images []models.Image, tracker *llmgw.CostTracker) (*llmgw.Response, string, error)
}

// LLMSummarizer implements Summarizer with one tool-less gateway call on
// the cheapest tier.
type LLMSummarizer struct {
	LLM  LLM
	Tier string
}

// Summarize condenses messages into a short third-person summary.
func (s *LLMSummarizer) Summarize(ctx context.Context, messages []models.Message) (string, error) {
	if s.LLM == nil {
		return "", fmt.Errorf("summarizer: no gateway configured")
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	req := []models.Message{{
		Role:    models.RoleUser,
		Content: "Summarize this conversation in at most 5 sentences, keeping names, visa codes, amounts, and open questions:\n\n" + b.String(),
	}}
	resp, _, err := s.LLM.Send(ctx, req, "You summarize conversations concisely and factually.", s.Tier, false, nil, nil, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
