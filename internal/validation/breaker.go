package validation

import "github.com/uniscore-io/uniscore/internal/config"

// callOutcome is one LLM call as the circuit breaker sees it.
type callOutcome struct {
	failed           bool
	invalidJSONRetry bool
}

// circuitBreaker keeps a sliding window of the most recent LLM call outcomes
// for a single stage. It trips only once the window is full, so a stage's
// first few calls can never shut the path down on their own.
type circuitBreaker struct {
	window         int
	maxFailRate    float64
	maxInvalidRate float64
	outcomes       []callOutcome
}

func newCircuitBreaker(cfg config.CircuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{
		window:         cfg.Window,
		maxFailRate:    cfg.MaxFailRate,
		maxInvalidRate: cfg.MaxInvalidJSONRate,
		outcomes:       make([]callOutcome, 0, cfg.Window),
	}
}

func (b *circuitBreaker) record(failed, invalidJSONRetry bool) {
	b.outcomes = append(b.outcomes, callOutcome{failed: failed, invalidJSONRetry: invalidJSONRetry})
	if len(b.outcomes) > b.window {
		b.outcomes = b.outcomes[1:]
	}
}

func (b *circuitBreaker) tripped() bool {
	if b.window <= 0 || len(b.outcomes) < b.window {
		return false
	}

	var failures, invalidRetries int

	for _, outcome := range b.outcomes {
		if outcome.failed {
			failures++
		}

		if outcome.invalidJSONRetry {
			invalidRetries++
		}
	}

	size := float64(len(b.outcomes))

	return float64(failures)/size >= b.maxFailRate || float64(invalidRetries)/size >= b.maxInvalidRate
}
