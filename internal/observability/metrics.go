package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application
// metrics. Built on Prometheus and tracking the query pipeline end to end:
// queries by outcome, gate triggers, LLM latency/cost/tokens, tool
// executions, retrieval latency, cache hit rates, and circuit breaker
// state.
type Metrics struct {
	// QueryCounter counts processed queries.
	// Labels: outcome (answered|gated|cached|failed)
	QueryCounter *prometheus.CounterVec

	// QueryDuration measures whole-query latency in seconds.
	QueryDuration prometheus.Histogram

	// GateCounter counts gate triggers by gate name.
	GateCounter *prometheus.CounterVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// LLMCostUSD accumulates per-model spend.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// BreakerState reports each model's circuit breaker state.
	// Labels: model; value 0=closed, 1=half-open, 2=open
	BreakerState *prometheus.GaugeVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// RetrievalDuration measures federated search latency in seconds.
	// Labels: collection
	RetrievalDuration *prometheus.HistogramVec

	// CacheCounter tracks semantic/prompt cache lookups.
	// Labels: cache (semantic|prompt), result (hit|miss)
	CacheCounter *prometheus.CounterVec

	// ErrorCounter tracks errors by component and type.
	ErrorCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP handler latency in seconds.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the default registry.
// Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		QueryCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_queries_total",
			Help: "Queries processed, by outcome.",
		}, []string{"outcome"}),

		QueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragcore_query_duration_seconds",
			Help:    "Whole-query latency.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
		}),

		GateCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_gate_triggers_total",
			Help: "Short-circuit gate triggers, by gate.",
		}, []string{"gate"}),

		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragcore_llm_request_duration_seconds",
			Help:    "LLM API call latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),

		LLMRequestCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_llm_requests_total",
			Help: "LLM requests, by provider/model/status.",
		}, []string{"provider", "model", "status"}),

		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_llm_tokens_total",
			Help: "Tokens consumed, by provider/model/type.",
		}, []string{"provider", "model", "type"}),

		LLMCostUSD: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_llm_cost_usd_total",
			Help: "Cumulative LLM spend in USD.",
		}, []string{"provider", "model"}),

		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragcore_breaker_state",
			Help: "Circuit breaker state per model (0 closed, 1 half-open, 2 open).",
		}, []string{"model"}),

		ToolExecutionCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_tool_executions_total",
			Help: "Tool invocations, by tool/status.",
		}, []string{"tool_name", "status"}),

		ToolExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragcore_tool_execution_duration_seconds",
			Help:    "Tool execution latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool_name"}),

		RetrievalDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragcore_retrieval_duration_seconds",
			Help:    "Per-collection search latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"collection"}),

		CacheCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_cache_lookups_total",
			Help: "Cache lookups, by cache/result.",
		}, []string{"cache", "result"}),

		ErrorCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_errors_total",
			Help: "Errors, by component/type.",
		}, []string{"component", "error_type"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragcore_http_request_duration_seconds",
			Help:    "HTTP handler latency.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30},
		}, []string{"method", "path", "status_code"}),
	}
}

// RecordQuery records one completed query.
func (m *Metrics) RecordQuery(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.QueryCounter.WithLabelValues(outcome).Inc()
	m.QueryDuration.Observe(durationSeconds)
}

// RecordGate records a gate trigger.
func (m *Metrics) RecordGate(gate string) {
	if m == nil {
		return
	}
	m.GateCounter.WithLabelValues(gate).Inc()
}

// RecordLLMRequest records one LLM call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordLLMCost accumulates per-model spend.
func (m *Metrics) RecordLLMCost(provider, model string, costUSD float64) {
	if m == nil || costUSD <= 0 {
		return
	}
	m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
}

// RecordToolExecution records one tool call.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordRetrieval records one collection search.
func (m *Metrics) RecordRetrieval(collection string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RetrievalDuration.WithLabelValues(collection).Observe(durationSeconds)
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheCounter.WithLabelValues(cache, result).Inc()
}

// RecordError counts an error against a component.
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// SetBreakerState reports a breaker's current state.
func (m *Metrics) SetBreakerState(model string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(model).Set(state)
}
