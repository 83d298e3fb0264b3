// Package monitoring watches pipeline runs for statistical drift. The
// anomaly detector compares the current stage's routing rates against a
// baseline of recent runs and emits z-score anomaly events; the triager turns
// those events into an operator-facing report, with an LLM draft when the
// reporting surface is enabled.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/uniscore-io/uniscore/internal/validation"
)

// Anomaly severities.
const (
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Detector defaults.
const (
	DefaultLookback   = 8
	DefaultZThreshold = 2.0

	highZThreshold = 3.0
	minBaselineLen = 2
)

// Rates derived from a pipeline_run_metrics row, each count over
// total_candidates.
var watchedRates = []string{
	"gray_zone_rate",
	"llm_review_rate",
	"auto_match_rate",
	"auto_reject_rate",
}

// AnomalyEvent is one anomaly_events row: a single metric of a single stage
// drifting beyond the z-score threshold against the baseline runs.
type AnomalyEvent struct {
	RunID         string    `json:"run_id"`
	EntityType    string    `json:"entity_type"`
	MetricName    string    `json:"metric_name"`
	CurrentValue  float64   `json:"current_value"`
	BaselineValue float64   `json:"baseline_value"`
	ZScore        float64   `json:"z_score"`
	Severity      string    `json:"severity"`
	CreatedAt     time.Time `json:"created_at"`
}

// MetricsSource provides the metric rows the detector reads. The store
// implements it; the current row must be visible (committed) before Detect
// is called.
type MetricsSource interface {
	// StageMetrics returns the metrics row for (runID, entityType). The
	// boolean reports whether the row exists.
	StageMetrics(ctx context.Context, runID, entityType string) (validation.StageMetrics, bool, error)

	// BaselineMetrics returns up to limit prior rows for the entity type,
	// excluding the given run, most recently finished first.
	BaselineMetrics(ctx context.Context, entityType, excludeRunID string, limit int) ([]validation.StageMetrics, error)
}

// Detector flags routing-rate drift for a completed stage.
type Detector struct {
	source     MetricsSource
	logger     *slog.Logger
	lookback   int
	zThreshold float64
}

// DetectorOption configures optional Detector behavior.
type DetectorOption func(*Detector)

// WithLookback overrides the number of baseline runs considered.
func WithLookback(lookback int) DetectorOption {
	return func(d *Detector) { d.lookback = lookback }
}

// WithZThreshold overrides the minimum |z| that raises an anomaly.
func WithZThreshold(threshold float64) DetectorOption {
	return func(d *Detector) { d.zThreshold = threshold }
}

// NewDetector builds a Detector over the given metrics source.
func NewDetector(source MetricsSource, logger *slog.Logger, opts ...DetectorOption) *Detector {
	detector := &Detector{
		source:     source,
		logger:     logger,
		lookback:   DefaultLookback,
		zThreshold: DefaultZThreshold,
	}

	for _, opt := range opts {
		opt(detector)
	}

	return detector
}

// Detect compares the stage's routing rates against the baseline runs and
// returns the anomalies found. Fewer than two baseline rows yield no
// anomalies; a zero-variance baseline is skipped for that metric.
func (d *Detector) Detect(ctx context.Context, runID, entityType string) ([]AnomalyEvent, error) {
	current, ok, err := d.source.StageMetrics(ctx, runID, entityType)
	if err != nil {
		return nil, fmt.Errorf("load current metrics: %w", err)
	}

	if !ok {
		return nil, nil
	}

	baseline, err := d.source.BaselineMetrics(ctx, entityType, runID, d.lookback)
	if err != nil {
		return nil, fmt.Errorf("load baseline metrics: %w", err)
	}

	if len(baseline) < minBaselineLen {
		d.logger.Debug("anomaly detection skipped, insufficient baseline",
			slog.String("run_id", runID),
			slog.String("entity_type", entityType),
			slog.Int("baseline_runs", len(baseline)),
		)

		return nil, nil
	}

	currentRates := stageRates(current)

	var anomalies []AnomalyEvent

	now := time.Now().UTC()

	for _, metricName := range watchedRates {
		values := make([]float64, 0, len(baseline))
		for _, row := range baseline {
			values = append(values, stageRates(row)[metricName])
		}

		z, ok := zScore(currentRates[metricName], values)
		if !ok || math.Abs(z) < d.zThreshold {
			continue
		}

		severity := SeverityMedium
		if math.Abs(z) >= highZThreshold {
			severity = SeverityHigh
		}

		anomalies = append(anomalies, AnomalyEvent{
			RunID:         runID,
			EntityType:    entityType,
			MetricName:    metricName,
			CurrentValue:  currentRates[metricName],
			BaselineValue: mean(values),
			ZScore:        z,
			Severity:      severity,
			CreatedAt:     now,
		})

		d.logger.Warn("anomaly detected",
			slog.String("run_id", runID),
			slog.String("entity_type", entityType),
			slog.String("metric", metricName),
			slog.Float64("z_score", z),
			slog.String("severity", severity),
		)
	}

	return anomalies, nil
}

// stageRates derives the four watched rates from a metrics row. A stage with
// no candidates contributes zero rates rather than NaN.
func stageRates(row validation.StageMetrics) map[string]float64 {
	total := float64(row.TotalCandidates)
	if total <= 0 {
		total = 1
	}

	return map[string]float64{
		"gray_zone_rate":   float64(row.GrayZoneSentCount) / total,
		"llm_review_rate":  float64(row.LLMReviewCount) / total,
		"auto_match_rate":  float64(row.AutoMatchCount) / total,
		"auto_reject_rate": float64(row.AutoRejectCount) / total,
	}
}

// zScore returns (current - mean) / sample stdev. The boolean is false when
// the baseline is too small or has zero variance.
func zScore(current float64, baseline []float64) (float64, bool) {
	if len(baseline) < minBaselineLen {
		return 0, false
	}

	sd := stdev(baseline)
	if sd == 0 {
		return 0, false
	}

	return (current - mean(baseline)) / sd, true
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// stdev is the sample standard deviation (n-1 denominator).
func stdev(values []float64) float64 {
	m := mean(values)

	var sum float64

	for _, v := range values {
		d := v - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
