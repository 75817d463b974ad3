package core

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

// Verification statuses attached to every pipeline output.
const (
	VerificationPassed    = "passed"
	VerificationCorrected = "corrected"
	VerificationUnchecked = "unchecked"
	VerificationBlocked   = "blocked"
	VerificationSkipped   = "skipped"
)

// PipelineInput is what the response pipeline operates on.
type PipelineInput struct {
	Response string
	Query    string
	Context  []string
	Sources  []models.Source

	// IntentTag steers the formatting stage ("procedural", "pricing", "").
	IntentTag string

	// Tier and Tracker let the one-shot self-correction reuse the same
	// cost budget as the rest of the query.
	Tier    string
	Tracker *llmgw.CostTracker
}

// PipelineOutput is the processed response plus its verification verdict.
type PipelineOutput struct {
	Response           string
	VerificationScore  float64
	VerificationStatus string
	Corrected          bool
}

// ResponsePipeline runs verification, one-shot self-correction, cleaning,
// citation formatting, and domain formatting over a generated answer.
type ResponsePipeline struct {
	llm    LLM
	logger *slog.Logger

	// CorrectionThreshold is the verification score below which a single
	// self-correction pass is attempted.
	CorrectionThreshold float64
}

// NewResponsePipeline creates a pipeline. llm may be nil, which disables
// self-correction (verification still runs).
func NewResponsePipeline(llm LLM, logger *slog.Logger) *ResponsePipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponsePipeline{llm: llm, logger: logger, CorrectionThreshold: 0.7}
}

// Run executes the pipeline stages in order. It never fails the query: on
// any internal error the best response so far is returned with an honest
// verification status.
func (p *ResponsePipeline) Run(ctx context.Context, in *PipelineInput) *PipelineOutput {
	out := &PipelineOutput{Response: in.Response, VerificationStatus: VerificationUnchecked}

	if len(in.Context) > 0 {
		out.VerificationScore = groundingScore(in.Response, in.Context)
		out.VerificationStatus = VerificationPassed

		if out.VerificationScore < p.CorrectionThreshold && p.llm != nil {
			corrected, score, err := p.selfCorrect(ctx, in)
			if err != nil {
				p.logger.Warn("response pipeline: self-correction failed", "error", err)
			} else if score > out.VerificationScore {
				out.Response = corrected
				out.VerificationScore = score
				out.VerificationStatus = VerificationCorrected
				out.Corrected = true
			}
		}
	}

	out.Response = Clean(out.Response)
	out.Response = formatCitations(out.Response, in.Sources)
	out.Response = applyDomainFormatting(out.Response, in.IntentTag)
	return out
}

// selfCorrect issues exactly one rewrite request grounded in the provided
// context, then re-verifies. Only one retry, ever.
func (p *ResponsePipeline) selfCorrect(ctx context.Context, in *PipelineInput) (string, float64, error) {
	contextBlock := strings.Join(in.Context, "\n\n")
	messages := []models.Message{{
		Role: models.RoleUser,
		Content: fmt.Sprintf(
			"Rewrite the draft answer below so that every claim is supported by the provided context. Remove any claim the context does not support. Do not add new information.\n\nQuestion: %s\n\nContext:\n%s\n\nDraft answer:\n%s",
			in.Query, contextBlock, in.Response),
	}}
	resp, _, err := p.llm.Send(ctx, messages, "You rewrite answers to be strictly grounded in provided context.", in.Tier, false, nil, nil, in.Tracker)
	if err != nil {
		return "", 0, err
	}
	corrected := strings.TrimSpace(resp.Text)
	if corrected == "" {
		return "", 0, fmt.Errorf("empty correction")
	}
	return corrected, groundingScore(corrected, in.Context), nil
}

// groundingScore estimates how well response is supported by context as
// the fraction of the response's significant terms that appear somewhere
// in the gathered context. Deliberately lexical: it runs on every query
// and must not cost an LLM call.
func groundingScore(response string, context []string) float64 {
	terms := significantTerms(response)
	if len(terms) == 0 {
		return 1.0
	}
	haystack := strings.ToLower(strings.Join(context, " "))
	found := 0
	for term := range terms {
		if strings.Contains(haystack, term) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

var wordRe = regexp.MustCompile(`[\p{L}\d]{4,}`)

func significantTerms(s string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		switch w {
		case "this", "that", "with", "from", "have", "will", "your", "their", "there", "which", "would", "should", "could", "about", "also", "been", "they", "them", "when", "where", "what", "must":
			continue
		}
		terms[w] = true
	}
	return terms
}

// Stub phrases and scaffolding leaks stripped by the cleaning stage.
var stubPhrases = []string{
	"no further action needed",
	"observation: none",
	"thought:",
	"action input:",
	"as an ai language model,",
	"as an ai,",
	"i don't have access to real-time",
}

// Clean removes stub phrases, internal scaffolding leaks, and
// meta-statements, then normalizes whitespace.
func Clean(response string) string {
	lines := strings.Split(response, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		drop := false
		for _, stub := range stubPhrases {
			if strings.HasPrefix(lower, stub) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	cleaned := strings.Join(kept, "\n")
	cleaned = regexp.MustCompile(`\n{3,}`).ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// IsStubAnswer reports whether answer is a known model stub rather than a
// real reply, so the ReAct engine can substitute a domain fallback.
func IsStubAnswer(answer string) bool {
	lower := strings.ToLower(strings.TrimSpace(answer))
	if lower == "" {
		return true
	}
	for _, stub := range []string{"no further action needed", "observation: none", "none", "n/a"} {
		if lower == stub {
			return true
		}
	}
	return false
}

var inlineMarkerRe = regexp.MustCompile(`\[\d+\]`)

// formatCitations appends numbered source markers when the answer cites
// nothing inline. Identical sources are deduplicated; the reference list
// is appended in order of first appearance.
func formatCitations(response string, sources []models.Source) string {
	if len(sources) == 0 {
		return response
	}
	if inlineMarkerRe.MatchString(response) {
		return response // the model already placed its own markers
	}

	var refs []string
	seen := map[string]bool{}
	for _, s := range sources {
		key := s.Collection + "/" + s.DocumentID
		if seen[key] {
			continue
		}
		seen[key] = true
		title := s.Title
		if title == "" {
			title = s.DocumentID
		}
		refs = append(refs, fmt.Sprintf("[%d] %s (%s)", len(refs)+1, title, s.Collection))
	}
	if len(refs) == 0 {
		return response
	}
	return response + "\n\nSources:\n" + strings.Join(refs, "\n")
}

// applyDomainFormatting shapes the answer by intent: procedural answers
// have line-start step numbers like "1)" normalized to "1.". Every other
// tag, including pricing, passes through unchanged.
func applyDomainFormatting(response, intentTag string) string {
	switch intentTag {
	case "procedural":
		return bulletizeSteps(response)
	default:
		return response
	}
}

var stepPrefixRe = regexp.MustCompile(`(?m)^(\d+)[.)]\s+`)

func bulletizeSteps(response string) string {
	// Normalize "1) foo" to "1. foo" so procedural answers render
	// consistently in every client.
	return stepPrefixRe.ReplaceAllString(response, "$1. ")
}
