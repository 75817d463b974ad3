package llmgw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

// ErrAllModelsFailed is returned when every model in the fallback chain for
// a requested tier has been exhausted (breaker open, cost cap, depth cap,
// or call error) without producing a response.
var ErrAllModelsFailed = errors.New("llmgw: all models failed")

// ErrUnknownTier is returned when the requested tier has no binding.
var ErrUnknownTier = errors.New("llmgw: unknown tier")

// CostTracker accumulates cost and fallback depth for a single query. The
// gateway aborts the cascade once either cap is reached.
type CostTracker struct {
	mu    sync.Mutex
	Cost  float64
	Depth int
}

func (c *CostTracker) add(cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cost += cost
	c.Depth++
}

func (c *CostTracker) snapshot() (float64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Cost, c.Depth
}

// tierBinding resolves one configured tier to a concrete provider/model and
// its pricing.
type tierBinding struct {
	tier     models.ModelTier
	name     string
	provider Provider
	model    string
	inPrice  float64 // USD per 1M input tokens
	outPrice float64 // USD per 1M output tokens
	maxTok   int
}

// Gateway routes completion requests across a tiered set of models with
// per-model circuit breaking, an ordered fallback cascade, and per-query
// cost/depth caps.
type Gateway struct {
	cfg           config.LLMGatewayConfig
	bindings      map[string]tierBinding // keyed by tier name
	fallbackOrder []string
	breakers      map[string]*breaker // keyed by model name
	breakersMu    sync.Mutex
}

// New builds a Gateway from configuration, binding each configured tier to
// a provider instance from providers (keyed by provider name, e.g.
// "anthropic", "openai").
func New(cfg config.LLMGatewayConfig, providers map[string]Provider) (*Gateway, error) {
	gw := &Gateway{
		cfg:           cfg,
		bindings:      make(map[string]tierBinding, len(cfg.Tiers)),
		fallbackOrder: cfg.FallbackOrder,
		breakers:      make(map[string]*breaker),
	}
	for name, tierCfg := range cfg.Tiers {
		p, ok := providers[tierCfg.Provider]
		if !ok {
			return nil, fmt.Errorf("llmgw: tier %q references unregistered provider %q", name, tierCfg.Provider)
		}
		gw.bindings[name] = tierBinding{
			tier:     tierRank(name),
			name:     name,
			provider: p,
			model:    tierCfg.Model,
			inPrice:  tierCfg.InputPricePer1M,
			outPrice: tierCfg.OutputPricePer1M,
			maxTok:   tierCfg.MaxTokens,
		}
	}
	if len(gw.fallbackOrder) == 0 {
		gw.fallbackOrder = []string{"flash", "lite", "pro", "fallback"}
	}
	return gw, nil
}

func tierRank(name string) models.ModelTier {
	switch name {
	case "flash":
		return models.TierFlash
	case "lite":
		return models.TierLite
	case "pro":
		return models.TierPro
	default:
		return models.TierFallback
	}
}

// fallbackChain returns the ordered list of tier names to try, starting at
// requestedTier and continuing through the remaining bound tiers in
// configured order.
func (g *Gateway) fallbackChain(requestedTier string) []string {
	var chain []string
	seen := false
	for _, name := range g.fallbackOrder {
		if _, ok := g.bindings[name]; !ok {
			continue
		}
		if name == requestedTier {
			seen = true
		}
		if seen {
			chain = append(chain, name)
		}
	}
	if len(chain) == 0 {
		// requestedTier wasn't found in the configured order (or isn't
		// bound); fall back to every bound tier in configured order.
		for _, name := range g.fallbackOrder {
			if _, ok := g.bindings[name]; ok {
				chain = append(chain, name)
			}
		}
	}
	return chain
}

func (g *Gateway) breakerFor(model string) *breaker {
	g.breakersMu.Lock()
	defer g.breakersMu.Unlock()
	b, ok := g.breakers[model]
	if !ok {
		b = newBreaker(g.cfg.CircuitBreaker.FailureThreshold, g.cfg.CircuitBreaker.OpenTimeout, g.cfg.CircuitBreaker.HalfOpenProbes)
		g.breakers[model] = b
	}
	return b
}

// Send walks the fallback chain for tier, skipping models whose breaker
// is open and aborting early once the cost or depth cap is hit, and
// returns the first successful completion.
func (g *Gateway) Send(ctx context.Context, messages []models.Message, systemPrompt string, tier string, enableTools bool, tools []ToolDef, images []models.Image, tracker *CostTracker) (*Response, string, error) {
	if tracker == nil {
		tracker = &CostTracker{}
	}
	chain := g.fallbackChain(tier)
	if len(chain) == 0 {
		return nil, "", ErrUnknownTier
	}

	maxCost := g.cfg.MaxCostPerQueryUSD
	var lastErr error

	for _, tierName := range chain {
		binding := g.bindings[tierName]

		cost, depth := tracker.snapshot()
		if maxCost > 0 && cost >= maxCost {
			break
		}
		if depth >= g.maxFallbackDepth() {
			break
		}

		b := g.breakerFor(binding.model)
		if !b.allow() {
			continue
		}

		req := Request{
			Model:       binding.model,
			System:      systemPrompt,
			Messages:    foldImages(messages, images),
			EnableTools: enableTools,
			Images:      images,
			MaxTokens:   binding.maxTok,
		}
		if enableTools && len(tools) > 0 {
			req.Tools = tools
		}

		resp, err := binding.provider.Complete(ctx, req)
		if err != nil {
			b.recordFailure()
			lastErr = err
			slog.Warn("llmgw: tier call failed", "tier", tierName, "model", binding.model, "category", classifyError(err), "error", err)
			continue
		}

		b.recordSuccess()
		callCost := estimateCost(binding, resp.Usage)
		resp.Usage.CostUSD = callCost
		tracker.add(callCost)
		return resp, binding.model, nil
	}

	if lastErr == nil {
		lastErr = ErrAllModelsFailed
	}
	return nil, "", fmt.Errorf("%w: %v", ErrAllModelsFailed, lastErr)
}

// foldImages attaches the query's images to the final user message (or a
// synthetic one), since providers read attachments from messages rather
// than a separate parameter. Each image keeps its declared MIME type.
func foldImages(messages []models.Message, images []models.Image) []models.Message {
	if len(images) == 0 {
		return messages
	}
	attachments := make([]models.Attachment, 0, len(images))
	for i, img := range images {
		payload := img.Base64
		if !strings.HasPrefix(payload, "data:") {
			mime := img.MimeType
			if mime == "" {
				mime = "image/png"
			}
			payload = "data:" + mime + ";base64," + payload
		}
		attachments = append(attachments, models.Attachment{
			ID:       fmt.Sprintf("query-image-%d", i),
			Type:     "image",
			URL:      payload,
			Filename: img.Name,
			MimeType: img.MimeType,
		})
	}

	out := append([]models.Message{}, messages...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == models.RoleUser {
			out[i].Attachments = append(append([]models.Attachment{}, out[i].Attachments...), attachments...)
			return out
		}
	}
	return append(out, models.Message{Role: models.RoleUser, Attachments: attachments})
}

func (g *Gateway) maxFallbackDepth() int {
	if g.cfg.MaxFallbackDepth <= 0 {
		return 3
	}
	return g.cfg.MaxFallbackDepth
}

func estimateCost(b tierBinding, usage models.TokenUsage) float64 {
	in := float64(usage.PromptTokens) / 1_000_000 * b.inPrice
	out := float64(usage.CompletionTokens) / 1_000_000 * b.outPrice
	return in + out
}

// HealthCheck probes every configured tier's model with a minimal payload
// and reports whether each one currently responds.
func (g *Gateway) HealthCheck(ctx context.Context) map[string]bool {
	result := make(map[string]bool, len(g.bindings))
	probe := []models.Message{{Role: models.RoleUser, Content: "ping"}}
	for name, binding := range g.bindings {
		_, err := binding.provider.Complete(ctx, Request{
			Model:     binding.model,
			Messages:  probe,
			MaxTokens: 1,
		})
		result[name] = err == nil
		if err == nil {
			g.breakerFor(binding.model).recordSuccess()
		}
	}
	return result
}

// Breakers returns a point-in-time snapshot of every model's circuit
// breaker state, for diagnostics and the /healthz handler.
func (g *Gateway) Breakers() []models.ModelHealth {
	g.breakersMu.Lock()
	defer g.breakersMu.Unlock()
	out := make([]models.ModelHealth, 0, len(g.breakers))
	for model, b := range g.breakers {
		tier := models.TierFallback
		for _, binding := range g.bindings {
			if binding.model == model {
				tier = binding.tier
				break
			}
		}
		out = append(out, b.snapshot(model, tier))
	}
	return out
}
