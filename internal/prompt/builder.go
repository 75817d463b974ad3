// Package prompt builds the per-query system prompt: an immutable
// security boundary and role description, a knowledge-governance section
// separating verified retrieval results from model knowledge, language
// and citation rules, a user-memory block, and persona overlays — with a
// short TTL cache so identical context doesn't rebuild the prompt every
// turn.
package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

// BuildRequest carries everything the builder needs to assemble (or
// reuse a cached) system prompt for one query.
type BuildRequest struct {
	UserID            string
	Query             string
	Context           models.UserContext
	DeepThink         bool
	AdditionalContext string
}

type cacheEntry struct {
	prompt    string
	expiresAt time.Time
}

// Builder assembles system prompts with a 5-minute TTL cache. The key is
// built from counts, lengths and flags (see cacheKey), not from the
// contents of facts or profile fields, so a context change that leaves
// those unchanged is served the cached prompt.
type Builder struct {
	cfg config.PromptConfig

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// New creates a Builder.
func New(cfg config.PromptConfig) *Builder {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Builder{cfg: cfg, cache: make(map[string]cacheEntry)}
}

// Build returns the system prompt for req, serving a cached copy
// verbatim when one exists and hasn't expired.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (string, error) {
	key := b.cacheKey(req)

	b.mu.RLock()
	if entry, ok := b.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		b.mu.RUnlock()
		return entry.prompt, nil
	}
	b.mu.RUnlock()

	rendered := b.render(req)

	b.mu.Lock()
	b.cache[key] = cacheEntry{prompt: rendered, expiresAt: time.Now().Add(b.cfg.CacheTTL)}
	b.mu.Unlock()

	return rendered, nil
}

// cacheKey composes the cache key from: user id, deep-think flag, profile-fact count, collective-fact count,
// timeline-summary length, persona flags, additional-context length, and
// a coarse language marker.
func (b *Builder) cacheKey(req BuildRequest) string {
	isCreator, isTeam := b.detectPersona(req.Context.Profile)
	return strings.Join([]string{
		req.UserID,
		strconv.FormatBool(req.DeepThink),
		strconv.Itoa(len(req.Context.Facts)),
		strconv.Itoa(len(req.Context.CollectiveFacts)),
		strconv.Itoa(len(req.Context.TimelineSummary)),
		strconv.FormatBool(isCreator),
		strconv.FormatBool(isTeam),
		strconv.Itoa(len(req.AdditionalContext)),
		coarseLanguageMarker(req.Query),
	}, ":")
}

func (b *Builder) detectPersona(profile *models.UserProfile) (isCreator, isTeam bool) {
	if profile == nil || profile.Email == "" {
		return false, false
	}
	email := strings.ToLower(profile.Email)
	for _, marker := range b.cfg.CreatorEmailMarkers {
		if marker != "" && strings.Contains(email, strings.ToLower(marker)) {
			return true, false
		}
	}
	if b.cfg.TeamEmailDomain != "" && strings.HasSuffix(email, strings.ToLower(b.cfg.TeamEmailDomain)) {
		return false, true
	}
	if profile.IsTeamMember {
		return false, true
	}
	return false, false
}

func (b *Builder) render(req BuildRequest) string {
	sections := []string{
		securityBoundary,
		roleDescription,
		knowledgeGovernance,
		languageProtocol,
		citationRule,
		userMemoryBlock(req.Context),
		"<verified_data>\n{{verified_data}}\n</verified_data>",
		internalMonologue,
	}

	if req.DeepThink {
		sections = append(sections, "### DEEP THINK MODE ACTIVATED\nTake time to analyze every angle (legal, tax, business). Weigh pros and cons explicitly before answering.")
	}
	if req.AdditionalContext != "" {
		sections = append(sections, strings.TrimSpace(req.AdditionalContext))
	}

	body := strings.Join(sections, "\n\n")

	isCreator, isTeam := b.detectPersona(req.Context.Profile)
	switch {
	case isCreator:
		return CreatorPersona + "\n\n" + body
	case isTeam:
		return TeamPersona + "\n\n" + body
	default:
		return body
	}
}

// userMemoryBlock renders the <user_memory> section: identity, facts,
// recent timeline, and promoted collective knowledge.
func userMemoryBlock(ctx models.UserContext) string {
	var parts []string

	if ctx.Profile != nil {
		name := orDefault(ctx.Profile.Name, "Partner")
		role := orDefault(ctx.Profile.Role, "Team Member")
		dept := orDefault(ctx.Profile.Department, "General")
		parts = append(parts, fmt.Sprintf("User Name: %s\nRole: %s\nDepartment: %s", name, role, dept))
	}

	if len(ctx.Facts) > 0 {
		lines := make([]string, len(ctx.Facts))
		for i, f := range ctx.Facts {
			lines[i] = "- " + f.Content
		}
		parts = append(parts, "FACTS:\n"+strings.Join(lines, "\n"))
	}

	if ctx.TimelineSummary != "" {
		parts = append(parts, "RECENT HISTORY:\n"+ctx.TimelineSummary)
	}

	if len(ctx.CollectiveFacts) > 0 {
		lines := make([]string, len(ctx.CollectiveFacts))
		for i, f := range ctx.CollectiveFacts {
			lines[i] = "- " + f.Content
		}
		parts = append(parts, "COLLECTIVE KNOWLEDGE:\n"+strings.Join(lines, "\n"))
	}

	body := "No specific memory yet."
	if len(parts) > 0 {
		body = strings.Join(parts, "\n\n")
	}
	return "<user_memory>\n" + body + "\n</user_memory>"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// coarseLanguageMarker is a lightweight language hint used only to keep
// the prompt cache from serving an Italian-tailored prompt to an
// Indonesian query. Full language detection for response formatting
// lives in core's query gates, not here.
func coarseLanguageMarker(query string) string {
	lower := strings.ToLower(query)
	switch {
	case containsAny(lower, "halo", "apa kabar", "terima kasih", "gimana", "bisa"):
		return "id"
	case containsAny(lower, "ciao", "grazie", "buongiorno", "come stai"):
		return "it"
	case containsAny(lower, "привіт", "дякую"):
		return "uk"
	case containsAny(lower, "привет", "спасибо"):
		return "ru"
	default:
		return "en"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
