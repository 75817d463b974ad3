package config

import "time"

// LLMGatewayConfig configures the tiered LLM gateway: which model backs
// each tier, the provider credentials, and the circuit breaker and cost
// caps that govern failover between tiers.
type LLMGatewayConfig struct {
	Tiers map[string]LLMTierConfig `yaml:"tiers"`

	Providers map[string]LLMProviderConfig `yaml:"providers"`

	// FallbackOrder lists tier names to try in order. If empty, tiers are
	// tried in ascending ModelTier order (flash, lite, pro, fallback).
	FallbackOrder []string `yaml:"fallback_order"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// MaxCostPerQueryUSD aborts the fallback cascade once the cumulative
	// cost for a single query would exceed this budget.
	MaxCostPerQueryUSD float64 `yaml:"max_cost_per_query_usd"`

	// MaxFallbackDepth aborts the cascade once the query's cost tracker
	// has recorded this many successful gateway calls; failed attempts do
	// not count toward it.
	MaxFallbackDepth int `yaml:"max_fallback_depth"`

	// MaxRetries is defaulted but not read by the gateway, which makes one
	// attempt per tier; the providers retry with their own settings.
	MaxRetries int `yaml:"max_retries"`

	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff"`
}

// LLMTierConfig binds a gateway tier to a concrete provider/model pair and
// its per-token pricing, used for cost accounting during fallback.
type LLMTierConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	InputPricePer1M   float64 `yaml:"input_price_per_1m"`
	OutputPricePer1M  float64 `yaml:"output_price_per_1m"`
	MaxTokens         int     `yaml:"max_tokens"`
}

// LLMProviderConfig holds credentials for one upstream LLM provider.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// CircuitBreakerConfig controls the three-state (closed/open/half-open)
// breaker that gates each tier.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	HalfOpenProbes   int           `yaml:"half_open_probes"`
}

func applyGatewayDefaults(cfg *LLMGatewayConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = 5 * time.Second
	}
	if cfg.MaxCostPerQueryUSD == 0 {
		cfg.MaxCostPerQueryUSD = 0.10
	}
	if cfg.MaxFallbackDepth == 0 {
		cfg.MaxFallbackDepth = 3
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.CircuitBreaker.OpenTimeout == 0 {
		cfg.CircuitBreaker.OpenTimeout = 60 * time.Second
	}
	if cfg.CircuitBreaker.HalfOpenProbes == 0 {
		cfg.CircuitBreaker.HalfOpenProbes = 2
	}
	if len(cfg.FallbackOrder) == 0 {
		cfg.FallbackOrder = []string{"flash", "lite", "pro", "fallback"}
	}
}
