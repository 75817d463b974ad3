// Package llmgw implements the tiered LLM gateway: it resolves a fallback
// chain of models for a requested tier, walks it under a per-model circuit
// breaker, enforces per-query cost and fallback-depth caps, and accumulates
// token usage. Concrete providers (Anthropic, OpenAI) live in
// internal/providers and satisfy the Provider interface defined here so the
// gateway never imports a provider SDK directly.
package llmgw

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/baliwise/ragcore/pkg/models"
)

// ToolDef is the model-agnostic shape of a tool's native function-calling
// schema, derived mechanically from a tool.Tool by the caller.
type ToolDef struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Request is a single completion request sent to a Provider.
type Request struct {
	Model       string
	System      string
	Messages    []models.Message
	Tools       []ToolDef
	EnableTools bool
	Images      []models.Image
	MaxTokens   int
}

// Response is a single non-streaming completion result.
type Response struct {
	Text      string
	ToolCalls []models.ToolCall
	Usage     models.TokenUsage
	Raw       any
}

// Provider is the contract a concrete LLM backend implements. The
// gateway only needs a single blocking call per hop of the fallback
// cascade, so the contract is deliberately narrow.
type Provider interface {
	// Name identifies the provider, e.g. "anthropic", "openai".
	Name() string

	// Complete sends one request and waits for the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// errorCategory classifies a provider error for circuit-breaker and
// fallback-cascade decisions, shared by the breaker and the cascade's
// quota-exhaustion check.
type errorCategory string

const (
	errCategoryTimeout          errorCategory = "timeout"
	errCategoryRateLimit        errorCategory = "rate_limit"
	errCategoryAuth             errorCategory = "auth"
	errCategoryBilling          errorCategory = "billing"
	errCategoryModelUnavailable errorCategory = "model_unavailable"
	errCategoryServerError      errorCategory = "server_error"
	errCategoryInvalidRequest   errorCategory = "invalid_request"
	errCategoryUnknown          errorCategory = "unknown"
)

func classifyError(err error) errorCategory {
	if err == nil {
		return errCategoryUnknown
	}
	s := err.Error()
	switch {
	case containsAny(s, "timeout", "deadline exceeded", "context deadline"):
		return errCategoryTimeout
	case containsAny(s, "rate limit", "rate_limit", "too many requests", "429"):
		return errCategoryRateLimit
	case containsAny(s, "unauthorized", "invalid api key", "authentication", "401", "403"):
		return errCategoryAuth
	case containsAny(s, "billing", "payment", "quota", "402", "insufficient_quota"):
		return errCategoryBilling
	case containsAny(s, "model not found", "does not exist", "unavailable"):
		return errCategoryModelUnavailable
	case containsAny(s, "internal server", "server error", "500", "502", "503", "504"):
		return errCategoryServerError
	case containsAny(s, "invalid", "bad request", "400"):
		return errCategoryInvalidRequest
	default:
		return errCategoryUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	ls := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(ls, sub) {
			return true
		}
	}
	return false
}
