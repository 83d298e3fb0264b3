package validation

import (
	"context"
	"log/slog"
	"time"

	"github.com/uniscore-io/uniscore/internal/config"
)

// llmPathState tracks whether the LLM path is still usable within a stage.
// The path degrades monotonically: once disabled it stays disabled for the
// remainder of the stage, and the first transition fixes the recorded reason.
type llmPathState int

const (
	stateHealthy llmPathState = iota
	stateDisabledUnavailable
	stateDisabledBudget
	stateDisabledCircuit
)

// Router classifies candidate pairs into AUTO_APPROVE, AUTO_REJECT and
// GRAY_ZONE per entity-typed thresholds, adjudicating the gray zone with the
// LLM validator under a health gate, a per-stage call budget and a
// sliding-window circuit breaker. One Router serves the whole run; per-stage
// state (budget, breaker, path state) resets on every Route call.
type Router struct {
	cfg       config.LLMValidation
	validator Adjudicator
	logger    *slog.Logger
	now       func() time.Time
}

// NewRouter builds a Router from the loaded configuration bundle.
func NewRouter(cfg config.LLMValidation, validator Adjudicator, logger *slog.Logger) *Router {
	return &Router{
		cfg:       cfg,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// stageState carries the mutable routing state for a single stage.
type stageState struct {
	path           llmPathState
	disabledReason string
	breaker        *circuitBreaker
	callCount      int
	totalLatencyMS float64
}

// disable moves the LLM path into a disabled state. The first transition
// wins: a later, different disablement never overwrites the recorded reason.
func (s *stageState) disable(path llmPathState, reason string) {
	if s.path != stateHealthy {
		return
	}

	s.path = path
	s.disabledReason = reason
}

// Route classifies one stage's candidates. Pairs scoring below the entity's
// low threshold are rejected; pairs at or above high without conflict flags
// are approved; everything else enters the gray zone and is adjudicated by
// the LLM or, when the path is down, by the configured fallback policy.
func (r *Router) Route(ctx context.Context, runID, entityType string, candidates []Candidate) Outcome {
	zone := r.cfg.ThresholdFor(entityType)

	outcome := Outcome{
		Metrics: StageMetrics{
			RunID:           runID,
			EntityType:      entityType,
			TotalCandidates: len(candidates),
			LLMFallbackMode: r.cfg.FallbackMode,
		},
	}

	state := &stageState{
		path:    stateHealthy,
		breaker: newCircuitBreaker(r.cfg.CircuitBreaker),
	}

	if !r.validator.Available() {
		state.disable(stateDisabledUnavailable, ReasonLLMUnavailable)
	}

	for _, candidate := range candidates {
		switch {
		case candidate.MatcherScore < zone.Low:
			outcome.Rejected = append(outcome.Rejected, candidate)
			outcome.Metrics.AutoRejectCount++
		case candidate.MatcherScore >= zone.High && !candidate.hasConflict():
			outcome.Approved = append(outcome.Approved, candidate)
			outcome.Metrics.AutoMatchCount++
		default:
			r.routeGrayZone(ctx, runID, entityType, candidate, state, &outcome)
		}
	}

	if state.callCount > 0 {
		outcome.Metrics.LLMAvgLatencyMS = state.totalLatencyMS / float64(state.callCount)
	}

	outcome.Metrics.LLMCallCount = state.callCount
	outcome.Metrics.LLMDisabledReason = state.disabledReason

	if state.disabledReason != "" {
		r.logger.Warn("LLM path disabled for stage",
			slog.String("run_id", runID),
			slog.String("entity_type", entityType),
			slog.String("reason", state.disabledReason))
	}

	return outcome
}

// routeGrayZone adjudicates one gray-zone pair, enforcing the budget before
// the call and feeding the circuit breaker after it.
func (r *Router) routeGrayZone(
	ctx context.Context,
	runID, entityType string,
	candidate Candidate,
	state *stageState,
	outcome *Outcome,
) {
	if state.path == stateHealthy && state.callCount >= r.cfg.MaxCallsPerEntityTypePerRun {
		state.disable(stateDisabledBudget, ReasonMaxCallsExceeded)
	}

	if state.path != stateHealthy {
		r.applyFallback(runID, entityType, candidate, outcome)

		return
	}

	result, latencyMS := r.validator.ValidatePair(
		ctx, entityType, candidate.Left, candidate.Right, candidate.MatcherScore, candidate.Signals)

	state.callCount++
	state.totalLatencyMS += latencyMS
	outcome.Metrics.GrayZoneSentCount++

	failed := hasFlag(result.RiskFlags, RiskLLMError)
	invalidRetry := hasFlag(result.RiskFlags, RiskLLMInvalidJSONRetry)

	if failed {
		outcome.Metrics.LLMErrorCount++
	}

	if invalidRetry {
		outcome.Metrics.LLMInvalidJSONRetryCount++
	}

	state.breaker.record(failed, invalidRetry)

	var status string

	switch result.Decision {
	case DecisionMatch:
		outcome.Approved = append(outcome.Approved, candidate)
		outcome.Metrics.LLMMatchCount++

		status = StatusApproved
	case DecisionNoMatch:
		outcome.Rejected = append(outcome.Rejected, candidate)
		outcome.Metrics.LLMNoMatchCount++

		status = StatusRejected
	default:
		// REVIEW drops the pair from this run until a human acts on it.
		outcome.Metrics.LLMReviewCount++

		status = StatusPending
	}

	outcome.Reviews = append(outcome.Reviews, r.reviewItem(runID, entityType, candidate, result, status))

	if state.breaker.tripped() {
		state.disable(stateDisabledCircuit, ReasonCircuitBreakerOpen)
	}
}

// applyFallback resolves a gray-zone pair without the LLM. auto_approve
// approves the pair with a synthetic MATCH verdict; review parks it as a
// PENDING review for a human. Either way a review row records the decision.
func (r *Router) applyFallback(runID, entityType string, candidate Candidate, outcome *Outcome) {
	if r.cfg.FallbackMode == config.FallbackAutoApprove {
		result := Result{
			Decision:   DecisionMatch,
			Confidence: 0,
			Reasons:    []string{"LLM unavailable; fallback auto-approve"},
			RiskFlags:  []string{RiskLLMFallback},
		}

		outcome.Approved = append(outcome.Approved, candidate)
		outcome.Metrics.AutoMatchCount++
		outcome.Reviews = append(outcome.Reviews, r.reviewItem(runID, entityType, candidate, result, StatusApproved))

		return
	}

	result := Result{
		Decision:   DecisionReview,
		Confidence: 0,
		Reasons:    []string{"LLM unavailable; queued for human review"},
		RiskFlags:  []string{RiskLLMFallback},
	}

	outcome.Metrics.GrayZoneSentCount++
	outcome.Reviews = append(outcome.Reviews, r.reviewItem(runID, entityType, candidate, result, StatusPending))
}

func (r *Router) reviewItem(runID, entityType string, candidate Candidate, result Result, status string) ReviewItem {
	now := r.now().UTC()

	return ReviewItem{
		RunID:         runID,
		EntityType:    entityType,
		LeftSource:    candidate.LeftSource,
		LeftID:        candidate.LeftID,
		RightSource:   candidate.RightSource,
		RightID:       candidate.RightID,
		MatcherScore:  candidate.MatcherScore,
		Signals:       candidate.Signals,
		LLMDecision:   result.Decision,
		LLMConfidence: result.Confidence,
		Reasons:       result.Reasons,
		RiskFlags:     result.RiskFlags,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
