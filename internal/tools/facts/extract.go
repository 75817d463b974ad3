// Package facts extracts candidate user facts from a completed
// conversation turn. It is the memory orchestrator's default extractor: a
// heuristic pass over the user's message, cheap enough to run on every
// turn without an LLM call.
package facts

import (
	"context"
	"regexp"
	"strings"

	"github.com/baliwise/ragcore/pkg/models"
)

var (
	emailRegex = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlRegex   = regexp.MustCompile(`https?://[^\s]+`)
	phoneRegex = regexp.MustCompile(`\+?[0-9][0-9()\-\s.]{6,}[0-9]`)

	// Self-descriptions worth remembering across conversations.
	namePattern     = regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?)`)
	businessPattern = regexp.MustCompile(`(?i)\bi (?:run|own|manage|started|am starting|am opening) (?:a |an |my )?([^.!?\n]{3,80})`)
	locationPattern = regexp.MustCompile(`(?i)\bi (?:live|stay|am based|am located) in ([A-Z][a-zA-Z ]{2,40})`)
	planPattern     = regexp.MustCompile(`(?i)\bi (?:want to|plan to|need to|am planning to) ([^.!?\n]{5,100})`)
)

// Extract pulls candidate facts from one turn's user message. limit <= 0
// means no cap.
func Extract(userMessage string, limit int) []models.ExtractedFact {
	seen := map[string]struct{}{}
	out := make([]models.ExtractedFact, 0, 8)

	add := func(f models.ExtractedFact) {
		if limit > 0 && len(out) >= limit {
			return
		}
		key := f.Type + ":" + strings.ToLower(f.Content)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}

	if m := namePattern.FindStringSubmatch(userMessage); m != nil {
		add(models.ExtractedFact{Content: "Name: " + m[1], Type: "identity", Confidence: 0.9, Source: "heuristic"})
	}
	for _, m := range businessPattern.FindAllStringSubmatch(userMessage, -1) {
		add(models.ExtractedFact{Content: "Runs " + strings.TrimSpace(m[1]), Type: "business", Confidence: 0.7, Source: "heuristic"})
	}
	for _, m := range locationPattern.FindAllStringSubmatch(userMessage, -1) {
		add(models.ExtractedFact{Content: "Based in " + strings.TrimSpace(m[1]), Type: "location", Confidence: 0.8, Source: "heuristic"})
	}
	for _, m := range planPattern.FindAllStringSubmatch(userMessage, -1) {
		add(models.ExtractedFact{Content: "Plans to " + strings.TrimSpace(m[1]), Type: "goal", Confidence: 0.6, Source: "heuristic"})
	}

	for _, match := range emailRegex.FindAllString(userMessage, -1) {
		add(models.ExtractedFact{Content: "Email: " + match, Type: "contact", Confidence: 0.9, Source: "regex"})
	}
	for _, match := range urlRegex.FindAllString(userMessage, -1) {
		add(models.ExtractedFact{Content: "Website: " + match, Type: "contact", Confidence: 0.8, Source: "regex"})
	}
	for _, match := range phoneRegex.FindAllString(userMessage, -1) {
		add(models.ExtractedFact{Content: "Phone: " + strings.TrimSpace(match), Type: "contact", Confidence: 0.6, Source: "regex"})
	}

	return out
}

// Extractor adapts Extract to the memory orchestrator's FactExtractor
// callable. maxFacts bounds how many facts one turn may contribute.
func Extractor(maxFacts int) func(ctx context.Context, userID, userMessage, aiResponse string) ([]models.ExtractedFact, error) {
	if maxFacts <= 0 {
		maxFacts = 10
	}
	return func(_ context.Context, _, userMessage, _ string) ([]models.ExtractedFact, error) {
		return Extract(userMessage, maxFacts), nil
	}
}
