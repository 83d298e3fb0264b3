package qa

import (
	"context"
	"fmt"

	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// Report is the per-run quality document served by the API: every stage's
// metrics, the anomaly events and the review counts grouped by entity type
// and status.
type Report struct {
	RunID        string                    `json:"run_id"`
	Metrics      []validation.StageMetrics `json:"metrics"`
	Anomalies    []monitoring.AnomalyEvent `json:"anomalies"`
	ReviewCounts map[string]map[string]int `json:"review_counts"`
}

// ReportSource provides the rows the report aggregates. The store implements it.
type ReportSource interface {
	MetricsForRun(ctx context.Context, runID string) ([]validation.StageMetrics, error)
	AnomaliesForRun(ctx context.Context, runID string) ([]monitoring.AnomalyEvent, error)
	ReviewCountsByStatus(ctx context.Context, runID string) (map[string]map[string]int, error)
}

// BuildReport assembles the quality report for one run.
func BuildReport(ctx context.Context, source ReportSource, runID string) (Report, error) {
	metrics, err := source.MetricsForRun(ctx, runID)
	if err != nil {
		return Report{}, fmt.Errorf("load run metrics: %w", err)
	}

	anomalies, err := source.AnomaliesForRun(ctx, runID)
	if err != nil {
		return Report{}, fmt.Errorf("load anomalies: %w", err)
	}

	counts, err := source.ReviewCountsByStatus(ctx, runID)
	if err != nil {
		return Report{}, fmt.Errorf("load review counts: %w", err)
	}

	return Report{
		RunID:        runID,
		Metrics:      metrics,
		Anomalies:    anomalies,
		ReviewCounts: counts,
	}, nil
}
