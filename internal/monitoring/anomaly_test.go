package monitoring

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/validation"
)

// fakeMetricsSource scripts the rows the detector reads.
type fakeMetricsSource struct {
	current  validation.StageMetrics
	exists   bool
	baseline []validation.StageMetrics
}

func (f *fakeMetricsSource) StageMetrics(
	context.Context, string, string,
) (validation.StageMetrics, bool, error) {
	return f.current, f.exists, nil
}

func (f *fakeMetricsSource) BaselineMetrics(
	_ context.Context, _, _ string, limit int,
) ([]validation.StageMetrics, error) {
	if len(f.baseline) > limit {
		return f.baseline[:limit], nil
	}

	return f.baseline, nil
}

// baselineRuns builds n prior rows with the given gray-zone counts out of 100
// candidates each.
func baselineRuns(grayZoneCounts ...int) []validation.StageMetrics {
	rows := make([]validation.StageMetrics, 0, len(grayZoneCounts))
	for _, count := range grayZoneCounts {
		rows = append(rows, validation.StageMetrics{
			EntityType:        "player",
			TotalCandidates:   100,
			GrayZoneSentCount: count,
		})
	}

	return rows
}

func TestDetector_HighSeverityOnLargeDrift(t *testing.T) {
	// Eight prior runs around 10% gray zone, current at 25%: |z| >= 3.
	source := &fakeMetricsSource{
		current: validation.StageMetrics{
			EntityType:        "player",
			TotalCandidates:   100,
			GrayZoneSentCount: 25,
		},
		exists:   true,
		baseline: baselineRuns(10, 11, 9, 10, 10, 11, 9, 10),
	}
	detector := NewDetector(source, slog.Default())

	anomalies, err := detector.Detect(context.Background(), "run-1", "player")

	require.NoError(t, err)
	require.NotEmpty(t, anomalies)

	var grayZone *AnomalyEvent

	for i := range anomalies {
		if anomalies[i].MetricName == "gray_zone_rate" {
			grayZone = &anomalies[i]
		}
	}

	require.NotNil(t, grayZone)
	assert.Equal(t, SeverityHigh, grayZone.Severity)
	assert.InDelta(t, 0.25, grayZone.CurrentValue, 1e-9)
	assert.InDelta(t, 0.10, grayZone.BaselineValue, 1e-2)
	assert.GreaterOrEqual(t, grayZone.ZScore, 3.0)
	assert.Equal(t, "run-1", grayZone.RunID)
}

func TestDetector_MediumSeverityBetweenThresholds(t *testing.T) {
	// Baseline mean 0.10, sample stdev ~0.034: current 0.20 gives z ~2.9.
	source := &fakeMetricsSource{
		current: validation.StageMetrics{
			EntityType:        "player",
			TotalCandidates:   100,
			GrayZoneSentCount: 20,
		},
		exists:   true,
		baseline: baselineRuns(10, 15, 5, 10, 14, 6, 10, 10),
	}
	detector := NewDetector(source, slog.Default())

	anomalies, err := detector.Detect(context.Background(), "run-1", "player")

	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, SeverityMedium, anomalies[0].Severity)
}

func TestDetector_InsufficientBaselineReturnsEmpty(t *testing.T) {
	source := &fakeMetricsSource{
		current:  validation.StageMetrics{TotalCandidates: 100, GrayZoneSentCount: 50},
		exists:   true,
		baseline: baselineRuns(10),
	}
	detector := NewDetector(source, slog.Default())

	anomalies, err := detector.Detect(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestDetector_ZeroVarianceBaselineSkipped(t *testing.T) {
	source := &fakeMetricsSource{
		current:  validation.StageMetrics{TotalCandidates: 100, GrayZoneSentCount: 50},
		exists:   true,
		baseline: baselineRuns(10, 10, 10, 10),
	}
	detector := NewDetector(source, slog.Default())

	anomalies, err := detector.Detect(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Empty(t, anomalies, "zero stdev yields no z-score")
}

func TestDetector_MissingCurrentRowReturnsEmpty(t *testing.T) {
	source := &fakeMetricsSource{exists: false, baseline: baselineRuns(10, 11, 9)}
	detector := NewDetector(source, slog.Default())

	anomalies, err := detector.Detect(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestDetector_StableRunRaisesNothing(t *testing.T) {
	source := &fakeMetricsSource{
		current: validation.StageMetrics{
			TotalCandidates:   100,
			GrayZoneSentCount: 10,
			AutoMatchCount:    80,
			AutoRejectCount:   10,
		},
		exists: true,
		baseline: []validation.StageMetrics{
			{TotalCandidates: 100, GrayZoneSentCount: 10, AutoMatchCount: 81, AutoRejectCount: 9},
			{TotalCandidates: 100, GrayZoneSentCount: 11, AutoMatchCount: 79, AutoRejectCount: 10},
			{TotalCandidates: 100, GrayZoneSentCount: 9, AutoMatchCount: 80, AutoRejectCount: 11},
		},
	}
	detector := NewDetector(source, slog.Default())

	anomalies, err := detector.Detect(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestStageRates_ZeroCandidatesYieldZeroRates(t *testing.T) {
	rates := stageRates(validation.StageMetrics{TotalCandidates: 0, GrayZoneSentCount: 0})

	for name, rate := range rates {
		assert.Zero(t, rate, name)
	}
}
