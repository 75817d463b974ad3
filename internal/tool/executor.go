package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCallBudgetExceeded is returned once a query has made MaxCalls tool
// invocations and the ReAct engine asks for one more.
var ErrCallBudgetExceeded = errors.New("tool call budget exceeded for this query")

// ExecutorConfig bounds how the executor runs tools for a single query.
type ExecutorConfig struct {
	// MaxCalls caps total tool invocations across the whole query.
	MaxCalls int

	// PerCallTimeout bounds a single tool's execution.
	PerCallTimeout time.Duration
}

// DefaultExecutorConfig uses the same call budget (8) as the default
// ReActConfig.MaxToolCalls.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{MaxCalls: 8, PerCallTimeout: 30 * time.Second}
}

// Executor wraps a Registry with a per-query call budget and timeout,
// used by the ReAct engine so a runaway loop can't invoke tools forever.
type Executor struct {
	registry *Registry
	config   ExecutorConfig
	calls    int
}

// NewExecutor creates an executor bound to registry with the given budget.
func NewExecutor(registry *Registry, config ExecutorConfig) *Executor {
	if config.MaxCalls <= 0 {
		config.MaxCalls = 8
	}
	if config.PerCallTimeout <= 0 {
		config.PerCallTimeout = 30 * time.Second
	}
	return &Executor{registry: registry, config: config}
}

// CallsMade reports how many tool calls this executor has run so far.
func (e *Executor) CallsMade() int { return e.calls }

// Execute runs one tool call, enforcing the per-query budget and timeout.
func (e *Executor) Execute(ctx context.Context, name string, params json.RawMessage) (*Result, error) {
	if e.calls >= e.config.MaxCalls {
		return &Result{Content: fmt.Sprintf("tool call budget of %d exceeded", e.config.MaxCalls), IsError: true}, ErrCallBudgetExceeded
	}
	e.calls++

	callCtx, cancel := context.WithTimeout(ctx, e.config.PerCallTimeout)
	defer cancel()

	result, err := e.registry.Execute(callCtx, name, params)
	if err != nil {
		return result, err
	}
	if callCtx.Err() != nil {
		return &Result{Content: fmt.Sprintf("tool %q timed out after %s", name, e.config.PerCallTimeout), IsError: true}, nil
	}
	return result, nil
}
