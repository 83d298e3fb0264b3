package qa

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// fakeRunSource scripts the aggregated evidence behind the evaluator and the
// report builder.
type fakeRunSource struct {
	metrics      []validation.StageMetrics
	highCount    int
	anomalies    []monitoring.AnomalyEvent
	reviewCounts map[string]map[string]int
}

func (f *fakeRunSource) MetricsForRun(context.Context, string) ([]validation.StageMetrics, error) {
	return f.metrics, nil
}

func (f *fakeRunSource) HighAnomalyCount(context.Context, string) (int, error) {
	return f.highCount, nil
}

func (f *fakeRunSource) AnomaliesForRun(context.Context, string) ([]monitoring.AnomalyEvent, error) {
	return f.anomalies, nil
}

func (f *fakeRunSource) ReviewCountsByStatus(context.Context, string) (map[string]map[string]int, error) {
	return f.reviewCounts, nil
}

func cleanRunMetrics() []validation.StageMetrics {
	return []validation.StageMetrics{
		{EntityType: "team", TotalCandidates: 50, GrayZoneSentCount: 5, LLMReviewCount: 2, LLMCallCount: 5},
		{EntityType: "player", TotalCandidates: 50, GrayZoneSentCount: 5, LLMReviewCount: 2, LLMCallCount: 5},
	}
}

func TestEvaluator_PassesCleanRun(t *testing.T) {
	evaluator := NewEvaluator(config.DefaultQualityGates(), &fakeRunSource{metrics: cleanRunMetrics()}, slog.Default())

	result, err := evaluator.Evaluate(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, StatusPass, result.Status)
	assert.Empty(t, result.FailedGates)
	assert.InDelta(t, 0.10, result.GateValues["gray_zone_rate"], 1e-9)
	assert.InDelta(t, 0.04, result.GateValues["llm_review_rate"], 1e-9)
	assert.Equal(t, 100, result.GateValues["total_candidates"])
}

func TestEvaluator_FailsOnGrayZoneRate(t *testing.T) {
	metrics := []validation.StageMetrics{
		{EntityType: "team", TotalCandidates: 100, GrayZoneSentCount: 40},
	}
	evaluator := NewEvaluator(config.DefaultQualityGates(), &fakeRunSource{metrics: metrics}, slog.Default())

	result, err := evaluator.Evaluate(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, StatusFail, result.Status)
	assert.Equal(t, []string{GateGrayZoneRate}, result.FailedGates)
}

func TestEvaluator_FailsOnLLMErrorRate(t *testing.T) {
	metrics := []validation.StageMetrics{
		{EntityType: "team", TotalCandidates: 100, LLMCallCount: 10, LLMErrorCount: 1},
	}
	evaluator := NewEvaluator(config.DefaultQualityGates(), &fakeRunSource{metrics: metrics}, slog.Default())

	result, err := evaluator.Evaluate(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.FailedGates, GateLLMErrorRate)
}

func TestEvaluator_FailsOnHighSeverityAnomaly(t *testing.T) {
	source := &fakeRunSource{metrics: cleanRunMetrics(), highCount: 1}
	evaluator := NewEvaluator(config.DefaultQualityGates(), source, slog.Default())

	result, err := evaluator.Evaluate(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, StatusFail, result.Status)
	assert.Equal(t, []string{GateHighSeverityAnomalies}, result.FailedGates)
	assert.Equal(t, 1, result.GateValues["high_severity_anomaly_count"])
}

func TestEvaluator_HighSeverityGateCanBeDisabled(t *testing.T) {
	cfg := config.DefaultQualityGates()
	cfg.FailOnHighSeverityAnomalies = false

	source := &fakeRunSource{metrics: cleanRunMetrics(), highCount: 3}
	evaluator := NewEvaluator(cfg, source, slog.Default())

	result, err := evaluator.Evaluate(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, StatusPass, result.Status)
}

func TestEvaluator_EmptyRunPasses(t *testing.T) {
	evaluator := NewEvaluator(config.DefaultQualityGates(), &fakeRunSource{}, slog.Default())

	result, err := evaluator.Evaluate(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, StatusPass, result.Status, "no candidates and no calls yield zero rates")
}

func TestEvaluator_RaisingCeilingsIsMonotonic(t *testing.T) {
	// A run failing under strict limits must pass once every ceiling is raised
	// above its observed rates, and never the other way around.
	metrics := []validation.StageMetrics{
		{EntityType: "team", TotalCandidates: 100, GrayZoneSentCount: 40, LLMReviewCount: 20, LLMCallCount: 40, LLMErrorCount: 4},
	}

	strict := config.DefaultQualityGates()
	lenient := config.QualityGates{
		MaxGrayZoneRate:             0.5,
		MaxLLMReviewRate:            0.5,
		MaxLLMErrorRate:             0.5,
		FailOnHighSeverityAnomalies: false,
	}

	strictResult, err := NewEvaluator(strict, &fakeRunSource{metrics: metrics}, slog.Default()).
		Evaluate(context.Background(), "run-1")
	require.NoError(t, err)

	lenientResult, err := NewEvaluator(lenient, &fakeRunSource{metrics: metrics}, slog.Default()).
		Evaluate(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, StatusFail, strictResult.Status)
	assert.Equal(t, StatusPass, lenientResult.Status)
	assert.Greater(t, len(strictResult.FailedGates), len(lenientResult.FailedGates))
}

func TestBuildReport_AggregatesRunEvidence(t *testing.T) {
	source := &fakeRunSource{
		metrics: cleanRunMetrics(),
		anomalies: []monitoring.AnomalyEvent{
			{RunID: "run-1", EntityType: "player", MetricName: "gray_zone_rate", Severity: monitoring.SeverityHigh},
		},
		reviewCounts: map[string]map[string]int{
			"player": {"PENDING": 3, "APPROVED": 1},
		},
	}

	report, err := BuildReport(context.Background(), source, "run-1")

	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Len(t, report.Metrics, 2)
	assert.Len(t, report.Anomalies, 1)
	assert.Equal(t, 3, report.ReviewCounts["player"]["PENDING"])
}
