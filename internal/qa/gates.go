// Package qa evaluates run-level quality: gates that classify a finished run
// PASS or FAIL against configured rate ceilings, and the per-run quality
// report served by the API.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// Gate statuses.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Gate names recorded in failed_gates.
const (
	GateGrayZoneRate          = "max_gray_zone_rate"
	GateLLMReviewRate         = "max_llm_review_rate"
	GateLLMErrorRate          = "max_llm_error_rate"
	GateHighSeverityAnomalies = "high_severity_anomalies"
)

// GateResult is one quality_gate_results row.
type GateResult struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	FailedGates []string       `json:"failed_gates"`
	GateValues  map[string]any `json:"gate_values"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MetricsSource provides the aggregated evidence the gates read. The store
// implements it.
type MetricsSource interface {
	// MetricsForRun returns every stage metrics row for the run.
	MetricsForRun(ctx context.Context, runID string) ([]validation.StageMetrics, error)

	// HighAnomalyCount returns the number of HIGH-severity anomaly events
	// recorded for the run.
	HighAnomalyCount(ctx context.Context, runID string) (int, error)
}

// Evaluator applies the configured quality gates to a finished run.
type Evaluator struct {
	cfg    config.QualityGates
	source MetricsSource
	logger *slog.Logger
}

// NewEvaluator builds an Evaluator over the given metrics source.
func NewEvaluator(cfg config.QualityGates, source MetricsSource, logger *slog.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, source: source, logger: logger}
}

// Evaluate aggregates the run's stage metrics, computes the gated rates and
// returns PASS when no gate fails. Raising any ceiling can only turn FAIL
// into PASS, never the reverse.
func (e *Evaluator) Evaluate(ctx context.Context, runID string) (GateResult, error) {
	rows, err := e.source.MetricsForRun(ctx, runID)
	if err != nil {
		return GateResult{}, fmt.Errorf("load run metrics: %w", err)
	}

	highCount, err := e.source.HighAnomalyCount(ctx, runID)
	if err != nil {
		return GateResult{}, fmt.Errorf("count high anomalies: %w", err)
	}

	var totalCandidates, grayZoneSent, llmReviews, llmCalls, llmErrors float64

	for _, row := range rows {
		totalCandidates += float64(row.TotalCandidates)
		grayZoneSent += float64(row.GrayZoneSentCount)
		llmReviews += float64(row.LLMReviewCount)
		llmCalls += float64(row.LLMCallCount)
		llmErrors += float64(row.LLMErrorCount)
	}

	var grayZoneRate, llmReviewRate, llmErrorRate float64

	if totalCandidates > 0 {
		grayZoneRate = grayZoneSent / totalCandidates
		llmReviewRate = llmReviews / totalCandidates
	}

	if llmCalls > 0 {
		llmErrorRate = llmErrors / llmCalls
	}

	var failed []string

	if grayZoneRate > e.cfg.MaxGrayZoneRate {
		failed = append(failed, GateGrayZoneRate)
	}

	if llmReviewRate > e.cfg.MaxLLMReviewRate {
		failed = append(failed, GateLLMReviewRate)
	}

	if llmErrorRate > e.cfg.MaxLLMErrorRate {
		failed = append(failed, GateLLMErrorRate)
	}

	if e.cfg.FailOnHighSeverityAnomalies && highCount > 0 {
		failed = append(failed, GateHighSeverityAnomalies)
	}

	status := StatusPass
	if len(failed) > 0 {
		status = StatusFail
	}

	result := GateResult{
		RunID:       runID,
		Status:      status,
		FailedGates: failed,
		GateValues: map[string]any{
			"gray_zone_rate":              grayZoneRate,
			"llm_review_rate":             llmReviewRate,
			"llm_error_rate":              llmErrorRate,
			"high_severity_anomaly_count": highCount,
			"total_candidates":            int(totalCandidates),
			"llm_call_count":              int(llmCalls),
		},
		CreatedAt: time.Now().UTC(),
	}

	e.logger.Info("quality gates evaluated",
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Int("failed_gates", len(failed)),
	)

	return result, nil
}
