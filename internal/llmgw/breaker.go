package llmgw

import (
	"sync"
	"time"

	"github.com/baliwise/ragcore/pkg/models"
)

// breaker is a three-state (closed/open/half-open) circuit breaker guarding
// a single model: once the open timeout elapses the breaker allows a
// limited number of trial calls through before deciding whether to fully
// close or reopen.
type breaker struct {
	mu sync.Mutex

	state              models.CircuitState
	consecutiveFailures int
	halfOpenSuccesses  int
	openedAt           time.Time

	failureThreshold int
	openTimeout      time.Duration
	halfOpenProbes   int
}

func newBreaker(failureThreshold int, openTimeout time.Duration, halfOpenProbes int) *breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	if halfOpenProbes <= 0 {
		halfOpenProbes = 2
	}
	return &breaker{
		state:            models.CircuitClosed,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenProbes:   halfOpenProbes,
	}
}

// allow reports whether a call may proceed, transitioning open->half-open
// once the timeout has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case models.CircuitClosed, models.CircuitHalfOpen:
		return true
	case models.CircuitOpen:
		if time.Since(b.openedAt) >= b.openTimeout {
			b.state = models.CircuitHalfOpen
			b.halfOpenSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

// recordSuccess closes the breaker (if half-open and enough probes passed)
// or resets the failure count (if already closed).
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case models.CircuitHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.halfOpenProbes {
			b.state = models.CircuitClosed
			b.consecutiveFailures = 0
			b.halfOpenSuccesses = 0
		}
	case models.CircuitClosed:
		b.consecutiveFailures = 0
	}
}

// recordFailure opens the breaker. A single failure while half-open reopens
// it immediately rather than counting toward the full threshold again.
func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.openedAt = time.Now()

	switch b.state {
	case models.CircuitHalfOpen:
		b.state = models.CircuitOpen
		b.halfOpenSuccesses = 0
	case models.CircuitClosed:
		if b.consecutiveFailures >= b.failureThreshold {
			b.state = models.CircuitOpen
		}
	}
}

func (b *breaker) snapshot(model string, tier models.ModelTier) models.ModelHealth {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := models.ModelHealth{
		Model:            model,
		Tier:             tier,
		State:            b.state,
		ConsecutiveFails: b.consecutiveFailures,
	}
	if !b.openedAt.IsZero() {
		h.OpenedAt = b.openedAt
	}
	return h
}
