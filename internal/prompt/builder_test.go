package prompt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

func testPromptConfig() config.PromptConfig {
	cfg := config.PromptConfig{}
	cfg.CacheTTL = 5 * time.Minute
	cfg.CreatorEmailMarkers = []string{"antonello", "siano"}
	cfg.TeamEmailDomain = "@balizero.com"
	return cfg
}

func TestBuildIncludesSecurityBoundaryAlways(t *testing.T) {
	b := New(testPromptConfig())
	out, err := b.Build(context.Background(), BuildRequest{UserID: "u1", Query: "hello"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(out, "IMMUTABLE SECURITY RULES") {
		t.Fatalf("expected security boundary in prompt, got: %s", out)
	}
}

func TestBuildActivatesCreatorPersona(t *testing.T) {
	b := New(testPromptConfig())
	req := BuildRequest{
		UserID: "u1",
		Query:  "why did that tool call fail?",
		Context: models.UserContext{
			Profile: &models.UserProfile{Email: "antonello@example.com"},
		},
	}
	out, err := b.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.HasPrefix(out, "### IDENTITY: ARCHITECT MODE") {
		t.Fatalf("expected creator persona prefix, got: %s", out[:min(60, len(out))])
	}
}

func TestBuildActivatesTeamPersonaForCompanyDomain(t *testing.T) {
	b := New(testPromptConfig())
	req := BuildRequest{
		UserID: "u2",
		Query:  "what's the SOP for KITAS renewals?",
		Context: models.UserContext{
			Profile: &models.UserProfile{Email: "maya@balizero.com"},
		},
	}
	out, err := b.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.HasPrefix(out, "### IDENTITY: INTERNAL TEAM MODE") {
		t.Fatalf("expected team persona prefix, got: %s", out[:min(60, len(out))])
	}
}

func TestBuildCachesVerbatimWithinTTL(t *testing.T) {
	b := New(testPromptConfig())
	req := BuildRequest{UserID: "u3", Query: "what is KITAS?"}

	first, err := b.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Change a part of the context that is not in the cache key (the
	// profile name, with no email so no persona flag changes) to prove the
	// second call returns the cached string rather than re-rendering.
	req.Context.Profile = &models.UserProfile{Name: "Late Addition"}
	second, err := b.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first != second {
		t.Fatalf("expected cache hit to return verbatim prompt")
	}
}

func TestBuildCacheKeyChangesWithFactCount(t *testing.T) {
	b := New(testPromptConfig())
	base := BuildRequest{UserID: "u4", Query: "what is KITAS?"}
	withFacts := base
	withFacts.Context.Facts = []models.UserFact{{Content: "Works in F&B"}}

	a, err := b.Build(context.Background(), base)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c, err := b.Build(context.Background(), withFacts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a == c {
		t.Fatalf("expected different fact counts to produce different prompts")
	}
	if !strings.Contains(c, "Works in F&B") {
		t.Fatalf("expected fact content in rendered prompt")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
