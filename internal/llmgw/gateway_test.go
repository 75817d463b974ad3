package llmgw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

type fakeProvider struct {
	name string
	fn   func(ctx context.Context, req Request) (*Response, error)
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	return f.fn(ctx, req)
}

func testConfig() config.LLMGatewayConfig {
	return config.LLMGatewayConfig{
		Tiers: map[string]config.LLMTierConfig{
			"flash": {Provider: "primary", Model: "flash-model", InputPricePer1M: 1, OutputPricePer1M: 2},
			"pro":   {Provider: "secondary", Model: "pro-model", InputPricePer1M: 5, OutputPricePer1M: 10},
		},
		FallbackOrder:      []string{"flash", "pro"},
		MaxCostPerQueryUSD: 0.10,
		CircuitBreaker:     config.CircuitBreakerConfig{FailureThreshold: 5, OpenTimeout: 60 * time.Second, HalfOpenProbes: 2},
	}
}

func TestSendFallsBackOnQuotaExhaustion(t *testing.T) {
	primary := &fakeProvider{name: "primary", fn: func(ctx context.Context, req Request) (*Response, error) {
		return nil, errors.New("quota exceeded: 429 too many requests")
	}}
	secondary := &fakeProvider{name: "secondary", fn: func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Text: "ok", Usage: models.TokenUsage{PromptTokens: 10, CompletionTokens: 10}}, nil
	}}

	gw, err := New(testConfig(), map[string]Provider{"primary": primary, "secondary": secondary})
	if err != nil {
		t.Fatal(err)
	}

	tracker := &CostTracker{}
	resp, model, err := gw.Send(context.Background(), nil, "sys", "flash", false, nil, nil, tracker)
	if err != nil {
		t.Fatalf("expected success after fallback, got %v", err)
	}
	if model != "pro-model" {
		t.Fatalf("expected fallback to pro-model, got %s", model)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if tracker.Depth != 1 {
		t.Fatalf("expected depth 1 (one successful call), got %d", tracker.Depth)
	}
}

func TestSendAbortsOnCostCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCostPerQueryUSD = 0.000001
	always := &fakeProvider{name: "primary", fn: func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Text: "ok", Usage: models.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000}}, nil
	}}
	secondary := &fakeProvider{name: "secondary", fn: func(ctx context.Context, req Request) (*Response, error) {
		t.Fatal("secondary should not be called once cost cap is exceeded")
		return nil, nil
	}}
	gw, err := New(cfg, map[string]Provider{"primary": always, "secondary": secondary})
	if err != nil {
		t.Fatal(err)
	}
	tracker := &CostTracker{Cost: 1.0}
	_, _, err = gw.Send(context.Background(), nil, "sys", "flash", false, nil, nil, tracker)
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Fatalf("expected ErrAllModelsFailed, got %v", err)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.CircuitBreaker.FailureThreshold = 2
	cfg.CircuitBreaker.OpenTimeout = time.Hour
	failing := &fakeProvider{name: "primary", fn: func(ctx context.Context, req Request) (*Response, error) {
		return nil, errors.New("internal server error 500")
	}}
	secondary := &fakeProvider{name: "secondary", fn: func(ctx context.Context, req Request) (*Response, error) {
		return nil, errors.New("internal server error 500")
	}}
	gw, err := New(cfg, map[string]Provider{"primary": failing, "secondary": secondary})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		_, _, _ = gw.Send(context.Background(), nil, "sys", "flash", false, nil, nil, &CostTracker{})
	}

	calls := 0
	probing := &fakeProvider{name: "primary", fn: func(ctx context.Context, req Request) (*Response, error) {
		calls++
		return nil, errors.New("internal server error 500")
	}}
	gw.bindings["flash"] = tierBinding{tier: models.TierFlash, name: "flash", provider: probing, model: "flash-model"}
	_, _, _ = gw.Send(context.Background(), nil, "sys", "flash", false, nil, nil, &CostTracker{})
	if calls != 0 {
		t.Fatalf("expected breaker to skip primary once open, but it was called %d times", calls)
	}
}

func TestSendStopsAtFallbackDepthCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFallbackDepth = 1
	primary := &fakeProvider{name: "primary", fn: func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Text: "ok"}, nil
	}}
	secondary := &fakeProvider{name: "secondary", fn: func(ctx context.Context, req Request) (*Response, error) {
		t.Fatal("secondary must not be reached once the depth cap is spent")
		return nil, nil
	}}
	gw, err := New(cfg, map[string]Provider{"primary": primary, "secondary": secondary})
	if err != nil {
		t.Fatal(err)
	}

	tracker := &CostTracker{Depth: 1}
	_, _, err = gw.Send(context.Background(), nil, "sys", "flash", false, nil, nil, tracker)
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Fatalf("expected ErrAllModelsFailed at depth cap, got %v", err)
	}
}
