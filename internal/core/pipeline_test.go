package core

import (
	"context"
	"strings"
	"testing"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

// scriptedLLM returns canned responses in order, recording every call.
type scriptedLLM struct {
	responses []*llmgw.Response
	models    []string
	errs      []error
	calls     int

	lastSystem string
	lastTools  bool
}

func (s *scriptedLLM) Send(ctx context.Context, messages []models.Message, systemPrompt string, tier string, enableTools bool, tools []llmgw.ToolDef, images []models.Image, tracker *llmgw.CostTracker) (*llmgw.Response, string, error) {
	i := s.calls
	s.calls++
	s.lastSystem = systemPrompt
	s.lastTools = enableTools
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, "", s.errs[i]
	}
	if i >= len(s.responses) {
		return &llmgw.Response{Text: "Final Answer: done."}, "scripted", nil
	}
	model := "scripted"
	if i < len(s.models) {
		model = s.models[i]
	}
	return s.responses[i], model, nil
}

func TestPipelinePassesGroundedResponse(t *testing.T) {
	p := NewResponsePipeline(nil, nil)
	out := p.Run(context.Background(), &PipelineInput{
		Response: "The minimum capital is 10 billion IDR for a foreign-owned company.",
		Query:    "PT PMA minimum capital",
		Context:  []string{"A PT PMA (foreign-owned company) requires a minimum capital of 10 billion IDR under current regulation."},
	})
	if out.VerificationStatus != VerificationPassed {
		t.Errorf("status = %q", out.VerificationStatus)
	}
	if out.VerificationScore < 0.7 {
		t.Errorf("score = %v, want >= 0.7", out.VerificationScore)
	}
}

func TestPipelineSelfCorrectsOnce(t *testing.T) {
	llm := &scriptedLLM{responses: []*llmgw.Response{
		{Text: "The context requires a sponsor letter for the extension process."},
	}}
	p := NewResponsePipeline(llm, nil)
	out := p.Run(context.Background(), &PipelineInput{
		Response: "Quantum blockchain synergy optimizes paradigm throughput considerably.",
		Query:    "KITAS extension",
		Context:  []string{"A KITAS extension requires a sponsor letter and must be filed before the permit expires. The process takes ten working days."},
	})
	if llm.calls != 1 {
		t.Fatalf("self-correction must issue exactly one call, got %d", llm.calls)
	}
	if out.VerificationStatus != VerificationCorrected || !out.Corrected {
		t.Errorf("status = %q corrected = %v", out.VerificationStatus, out.Corrected)
	}
	if !strings.Contains(out.Response, "sponsor letter") {
		t.Errorf("corrected response = %q", out.Response)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	p := NewResponsePipeline(nil, nil)
	in := &PipelineInput{
		Response: "A KITAS extension requires a sponsor letter.",
		Query:    "KITAS extension",
		Context:  []string{"A KITAS extension requires a sponsor letter."},
		Sources:  []models.Source{{Collection: "visa", DocumentID: "d1", Title: "KITAS Guide"}},
	}
	first := p.Run(context.Background(), in)
	second := p.Run(context.Background(), &PipelineInput{
		Response: first.Response,
		Query:    in.Query,
		Context:  in.Context,
		Sources:  in.Sources,
	})
	if first.Response != second.Response {
		t.Errorf("pipeline not idempotent:\nfirst:  %q\nsecond: %q", first.Response, second.Response)
	}
}

func TestPipelineNoContextUnchecked(t *testing.T) {
	p := NewResponsePipeline(nil, nil)
	out := p.Run(context.Background(), &PipelineInput{Response: "Hello!", Query: "hi"})
	if out.VerificationStatus != VerificationUnchecked {
		t.Errorf("status = %q", out.VerificationStatus)
	}
}

func TestCleanStripsScaffolding(t *testing.T) {
	in := "Thought: I should answer now.\nThe capital is 10 billion IDR.\nObservation: none\n\n\n\nAs an AI, I note this.\nDone."
	got := Clean(in)
	if strings.Contains(got, "Thought:") || strings.Contains(strings.ToLower(got), "observation") || strings.Contains(got, "As an AI") {
		t.Errorf("Clean left scaffolding: %q", got)
	}
	if !strings.Contains(got, "10 billion IDR") {
		t.Errorf("Clean dropped content: %q", got)
	}
}

func TestFormatCitationsAppendsAndDedupes(t *testing.T) {
	sources := []models.Source{
		{Collection: "visa", DocumentID: "d1", Title: "KITAS Guide"},
		{Collection: "visa", DocumentID: "d1", Title: "KITAS Guide"},
		{Collection: "legal", DocumentID: "d2"},
	}
	got := formatCitations("The extension takes ten days.", sources)
	if !strings.Contains(got, "[1] KITAS Guide (visa)") || !strings.Contains(got, "[2] d2 (legal)") {
		t.Errorf("citations = %q", got)
	}
	if strings.Count(got, "KITAS Guide") != 1 {
		t.Errorf("duplicate source not deduplicated: %q", got)
	}
}

func TestFormatCitationsRespectsInlineMarkers(t *testing.T) {
	got := formatCitations("Per the guide [1], ten days.", []models.Source{{Collection: "visa", DocumentID: "d1"}})
	if strings.Contains(got, "Sources:") {
		t.Errorf("existing inline markers must suppress the appendix: %q", got)
	}
}
