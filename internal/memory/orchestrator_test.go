package memory

import (
	"context"
	"testing"

	"github.com/baliwise/ragcore/internal/collective"
	"github.com/baliwise/ragcore/internal/sessions"
	"github.com/baliwise/ragcore/internal/store"
	"github.com/baliwise/ragcore/pkg/models"
)

func extractorReturning(facts ...models.ExtractedFact) FactExtractor {
	return func(ctx context.Context, userID, userMessage, aiResponse string) ([]models.ExtractedFact, error) {
		return facts, nil
	}
}

func TestGetUserContextAnonymousIsEmpty(t *testing.T) {
	o := NewOrchestrator(NewInMemoryUserStore(), sessions.NewMemoryStore(), nil, nil, OrchestratorConfig{})
	ctx, err := o.GetUserContext(context.Background(), "", "hello", "")
	if err != nil {
		t.Fatalf("GetUserContext: %v", err)
	}
	if ctx.UserID != AnonymousUser {
		t.Fatalf("expected normalized anonymous id, got %q", ctx.UserID)
	}
	if ctx.Profile != nil || len(ctx.Facts) != 0 {
		t.Fatalf("expected empty context for anonymous user, got %+v", ctx)
	}
}

func TestGetUserContextDegradedModeReturnsEmpty(t *testing.T) {
	o := NewOrchestrator(nil, sessions.NewMemoryStore(), nil, nil, OrchestratorConfig{})
	if !o.IsDegraded() {
		t.Fatalf("expected degraded mode with nil user store")
	}
	ctx, err := o.GetUserContext(context.Background(), "user-1", "hello", "")
	if err != nil {
		t.Fatalf("GetUserContext: %v", err)
	}
	if ctx.Profile != nil {
		t.Fatalf("expected empty context in degraded mode, got %+v", ctx)
	}
}

func TestProcessConversationSavesFactsAndIncrementsCounter(t *testing.T) {
	users := NewInMemoryUserStore()
	o := NewOrchestrator(users, sessions.NewMemoryStore(), nil, extractorReturning(
		models.ExtractedFact{Content: "Works at Bali Zero", Type: "employment", Confidence: 0.9},
	), OrchestratorConfig{})

	res, err := o.ProcessConversation(context.Background(), "user-1", "I work at Bali Zero", "Noted!")
	if err != nil {
		t.Fatalf("ProcessConversation: %v", err)
	}
	if !res.Success || res.FactsSaved != 1 || res.FactsExtracted != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	facts, err := users.ListFacts(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListFacts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact saved, got %d", len(facts))
	}

	profile, err := users.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile == nil || profile.ConversationCount != 1 {
		t.Fatalf("expected conversation count 1, got %+v", profile)
	}
}

func TestProcessConversationDedupesFacts(t *testing.T) {
	users := NewInMemoryUserStore()
	o := NewOrchestrator(users, sessions.NewMemoryStore(), nil, extractorReturning(
		models.ExtractedFact{Content: "Lives in Bali", Confidence: 0.8},
	), OrchestratorConfig{})

	if _, err := o.ProcessConversation(context.Background(), "user-1", "I live in Bali", "Got it"); err != nil {
		t.Fatalf("ProcessConversation: %v", err)
	}
	res, err := o.ProcessConversation(context.Background(), "user-1", "I live in Bali still", "Ok")
	if err != nil {
		t.Fatalf("ProcessConversation: %v", err)
	}
	if res.FactsSaved != 0 {
		t.Fatalf("expected duplicate fact to be skipped, got facts_saved=%d", res.FactsSaved)
	}
}

func TestProcessConversationNonFatalOnExtractorError(t *testing.T) {
	users := NewInMemoryUserStore()
	failing := func(ctx context.Context, userID, userMessage, aiResponse string) ([]models.ExtractedFact, error) {
		return nil, context.DeadlineExceeded
	}
	o := NewOrchestrator(users, sessions.NewMemoryStore(), nil, failing, OrchestratorConfig{})

	res, err := o.ProcessConversation(context.Background(), "user-1", "hi", "hello")
	if err != nil {
		t.Fatalf("expected extractor failure to be swallowed, got %v", err)
	}
	if res.Success {
		t.Fatalf("expected success=false on extractor failure, got %+v", res)
	}
}

func TestGetUserContextIncludesCollectiveFacts(t *testing.T) {
	users := NewInMemoryUserStore()
	fakeColl := collective.New(store.NewInMemoryCollectiveStore(), collective.Config{PromotionThreshold: 1})
	if _, err := fakeColl.AddContribution(context.Background(), "u1", "Visa fees are non-refundable", "visa", nil); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	o := NewOrchestrator(users, sessions.NewMemoryStore(), fakeColl, nil, OrchestratorConfig{})
	ctx, err := o.GetUserContext(context.Background(), "user-2", "visa fees?", "")
	if err != nil {
		t.Fatalf("GetUserContext: %v", err)
	}
	if len(ctx.CollectiveFacts) != 1 {
		t.Fatalf("expected 1 promoted collective fact, got %d", len(ctx.CollectiveFacts))
	}
}
