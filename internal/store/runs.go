package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// metricsColumns is the select list shared by every pipeline_run_metrics read.
const metricsColumns = `
	run_id, entity_type, started_at, finished_at,
	total_candidates, auto_match_count, auto_reject_count, gray_zone_sent_count,
	llm_match_count, llm_no_match_count, llm_review_count,
	llm_call_count, llm_error_count, llm_invalid_json_retry_count,
	llm_avg_latency_ms, llm_fallback_mode, llm_disabled_reason`

// WriteReviews persists the stage's review records in one transaction.
func (s *Store) WriteReviews(ctx context.Context, reviews []validation.ReviewItem) error {
	if len(reviews) == 0 {
		return nil
	}

	return s.inTx(ctx, "write reviews", func(tx *sql.Tx) error {
		for _, review := range reviews {
			signals, err := json.Marshal(review.Signals)
			if err != nil {
				return fmt.Errorf("marshal signals: %w", err)
			}

			reasons, err := json.Marshal(review.Reasons)
			if err != nil {
				return fmt.Errorf("marshal reasons: %w", err)
			}

			riskFlags, err := json.Marshal(review.RiskFlags)
			if err != nil {
				return fmt.Errorf("marshal risk flags: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO llm_match_reviews (
					run_id, entity_type, left_source, left_id, right_source, right_id,
					matcher_score, signals, llm_decision, llm_confidence,
					reasons, risk_flags, status, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				review.RunID, review.EntityType,
				review.LeftSource, review.LeftID, review.RightSource, review.RightID,
				review.MatcherScore, signals, review.LLMDecision, review.LLMConfidence,
				reasons, riskFlags, review.Status, review.CreatedAt, review.UpdatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// WriteMetrics persists one stage's metrics row.
func (s *Store) WriteMetrics(ctx context.Context, metrics validation.StageMetrics) error {
	_, err := s.conn.db.ExecContext(ctx, `
		INSERT INTO pipeline_run_metrics (
			run_id, entity_type, started_at, finished_at,
			total_candidates, auto_match_count, auto_reject_count, gray_zone_sent_count,
			llm_match_count, llm_no_match_count, llm_review_count,
			llm_call_count, llm_error_count, llm_invalid_json_retry_count,
			llm_avg_latency_ms, llm_fallback_mode, llm_disabled_reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		metrics.RunID, metrics.EntityType, metrics.StartedAt, metrics.FinishedAt,
		metrics.TotalCandidates, metrics.AutoMatchCount, metrics.AutoRejectCount,
		metrics.GrayZoneSentCount, metrics.LLMMatchCount, metrics.LLMNoMatchCount,
		metrics.LLMReviewCount, metrics.LLMCallCount, metrics.LLMErrorCount,
		metrics.LLMInvalidJSONRetryCount, metrics.LLMAvgLatencyMS,
		nullString(metrics.LLMFallbackMode), nullString(metrics.LLMDisabledReason),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: write metrics: %w", ErrWriteFailed, err)
	}

	return nil
}

// WriteAnomalies persists the stage's anomaly events.
func (s *Store) WriteAnomalies(ctx context.Context, anomalies []monitoring.AnomalyEvent) error {
	if len(anomalies) == 0 {
		return nil
	}

	return s.inTx(ctx, "write anomalies", func(tx *sql.Tx) error {
		for _, anomaly := range anomalies {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO anomaly_events (
					run_id, entity_type, metric_name,
					current_value, baseline_value, z_score, severity, created_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				anomaly.RunID, anomaly.EntityType, anomaly.MetricName,
				anomaly.CurrentValue, anomaly.BaselineValue, anomaly.ZScore,
				anomaly.Severity, anomaly.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// WriteTriageReport persists one stage's triage report.
func (s *Store) WriteTriageReport(
	ctx context.Context,
	runID, entityType string,
	report monitoring.TriageReport,
) error {
	document, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: marshal triage report: %w", ErrWriteFailed, err)
	}

	_, err = s.conn.db.ExecContext(ctx, `
		INSERT INTO anomaly_triage_reports (run_id, entity_type, report, created_at)
		VALUES ($1, $2, $3, $4)`,
		runID, entityType, document, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: write triage report: %w", ErrWriteFailed, err)
	}

	return nil
}

// WriteGateResult persists the run's quality-gate verdict.
func (s *Store) WriteGateResult(ctx context.Context, result qa.GateResult) error {
	failedGates, err := json.Marshal(result.FailedGates)
	if err != nil {
		return fmt.Errorf("%w: marshal failed gates: %w", ErrWriteFailed, err)
	}

	gateValues, err := json.Marshal(result.GateValues)
	if err != nil {
		return fmt.Errorf("%w: marshal gate values: %w", ErrWriteFailed, err)
	}

	_, err = s.conn.db.ExecContext(ctx, `
		INSERT INTO quality_gate_results (run_id, status, failed_gates, gate_values, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE
		SET status = EXCLUDED.status,
		    failed_gates = EXCLUDED.failed_gates,
		    gate_values = EXCLUDED.gate_values,
		    created_at = EXCLUDED.created_at`,
		result.RunID, result.Status, failedGates, gateValues, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: write gate result: %w", ErrWriteFailed, err)
	}

	return nil
}

// StageMetrics returns the metrics row for (runID, entityType).
func (s *Store) StageMetrics(ctx context.Context, runID, entityType string) (validation.StageMetrics, bool, error) {
	row := s.conn.db.QueryRowContext(ctx, `
		SELECT `+metricsColumns+`
		FROM pipeline_run_metrics
		WHERE run_id = $1 AND entity_type = $2
		LIMIT 1`,
		runID, entityType,
	)

	metrics, err := scanMetrics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return validation.StageMetrics{}, false, nil
	}

	if err != nil {
		return validation.StageMetrics{}, false, fmt.Errorf("%w: stage metrics: %w", ErrReadFailed, err)
	}

	return metrics, true, nil
}

// BaselineMetrics returns up to limit prior rows for the entity type,
// excluding the given run, most recently finished first.
func (s *Store) BaselineMetrics(
	ctx context.Context,
	entityType, excludeRunID string,
	limit int,
) ([]validation.StageMetrics, error) {
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT `+metricsColumns+`
		FROM pipeline_run_metrics
		WHERE entity_type = $1 AND run_id != $2
		ORDER BY finished_at DESC NULLS LAST
		LIMIT $3`,
		entityType, excludeRunID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: baseline metrics: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	return collectMetrics(rows)
}

// MetricsForRun returns every stage metrics row for the run in stage order.
func (s *Store) MetricsForRun(ctx context.Context, runID string) ([]validation.StageMetrics, error) {
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT `+metricsColumns+`
		FROM pipeline_run_metrics
		WHERE run_id = $1
		ORDER BY started_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: run metrics: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	return collectMetrics(rows)
}

// HighAnomalyCount returns the number of HIGH-severity anomaly events for the run.
func (s *Store) HighAnomalyCount(ctx context.Context, runID string) (int, error) {
	var count int

	err := s.conn.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM anomaly_events
		WHERE run_id = $1 AND severity = $2`,
		runID, monitoring.SeverityHigh,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: high anomaly count: %w", ErrReadFailed, err)
	}

	return count, nil
}

// AnomaliesForRun returns every anomaly event recorded for the run.
func (s *Store) AnomaliesForRun(ctx context.Context, runID string) ([]monitoring.AnomalyEvent, error) {
	return s.queryAnomalies(ctx, `
		SELECT run_id, entity_type, metric_name, current_value, baseline_value, z_score, severity, created_at
		FROM anomaly_events
		WHERE run_id = $1
		ORDER BY created_at DESC`,
		runID,
	)
}

// AnomaliesForStage returns the stage's anomaly events, newest first.
func (s *Store) AnomaliesForStage(ctx context.Context, runID, entityType string) ([]monitoring.AnomalyEvent, error) {
	return s.queryAnomalies(ctx, `
		SELECT run_id, entity_type, metric_name, current_value, baseline_value, z_score, severity, created_at
		FROM anomaly_events
		WHERE run_id = $1 AND entity_type = $2
		ORDER BY created_at DESC`,
		runID, entityType,
	)
}

func (s *Store) queryAnomalies(ctx context.Context, query string, args ...any) ([]monitoring.AnomalyEvent, error) {
	rows, err := s.conn.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: anomalies: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var anomalies []monitoring.AnomalyEvent

	for rows.Next() {
		var event monitoring.AnomalyEvent

		err := rows.Scan(
			&event.RunID, &event.EntityType, &event.MetricName,
			&event.CurrentValue, &event.BaselineValue, &event.ZScore,
			&event.Severity, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan anomaly: %w", ErrReadFailed, err)
		}

		anomalies = append(anomalies, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: anomalies: %w", ErrReadFailed, err)
	}

	return anomalies, nil
}

// ReviewSamples returns up to limit recent review rows for a stage, the
// evidence slice shown to the triage LLM.
func (s *Store) ReviewSamples(
	ctx context.Context,
	runID, entityType string,
	limit int,
) ([]monitoring.ReviewSample, error) {
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT left_id, right_id, matcher_score, signals
		FROM llm_match_reviews
		WHERE run_id = $1 AND entity_type = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		runID, entityType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: review samples: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var samples []monitoring.ReviewSample

	for rows.Next() {
		var (
			sample  monitoring.ReviewSample
			signals []byte
		)

		if err := rows.Scan(&sample.LeftID, &sample.RightID, &sample.MatcherScore, &signals); err != nil {
			return nil, fmt.Errorf("%w: scan review sample: %w", ErrReadFailed, err)
		}

		if len(signals) > 0 {
			if err := json.Unmarshal(signals, &sample.Signals); err != nil {
				return nil, fmt.Errorf("%w: decode signals: %w", ErrReadFailed, err)
			}
		}

		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: review samples: %w", ErrReadFailed, err)
	}

	return samples, nil
}

// ReviewCountsByStatus returns review counts grouped by entity type and status.
func (s *Store) ReviewCountsByStatus(ctx context.Context, runID string) (map[string]map[string]int, error) {
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT entity_type, status, COUNT(*)
		FROM llm_match_reviews
		WHERE run_id = $1
		GROUP BY entity_type, status`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: review counts: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]map[string]int)

	for rows.Next() {
		var (
			entityType, status string
			count              int
		)

		if err := rows.Scan(&entityType, &status, &count); err != nil {
			return nil, fmt.Errorf("%w: scan review count: %w", ErrReadFailed, err)
		}

		if counts[entityType] == nil {
			counts[entityType] = make(map[string]int)
		}

		counts[entityType][status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: review counts: %w", ErrReadFailed, err)
	}

	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared metrics scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetrics(row rowScanner) (validation.StageMetrics, error) {
	var (
		metrics        validation.StageMetrics
		fallbackMode   sql.NullString
		disabledReason sql.NullString
		startedAt      sql.NullTime
		finishedAt     sql.NullTime
	)

	err := row.Scan(
		&metrics.RunID, &metrics.EntityType, &startedAt, &finishedAt,
		&metrics.TotalCandidates, &metrics.AutoMatchCount, &metrics.AutoRejectCount,
		&metrics.GrayZoneSentCount, &metrics.LLMMatchCount, &metrics.LLMNoMatchCount,
		&metrics.LLMReviewCount, &metrics.LLMCallCount, &metrics.LLMErrorCount,
		&metrics.LLMInvalidJSONRetryCount, &metrics.LLMAvgLatencyMS,
		&fallbackMode, &disabledReason,
	)
	if err != nil {
		return validation.StageMetrics{}, err
	}

	metrics.StartedAt = startedAt.Time
	metrics.FinishedAt = finishedAt.Time
	metrics.LLMFallbackMode = fallbackMode.String
	metrics.LLMDisabledReason = disabledReason.String

	return metrics, nil
}

func collectMetrics(rows *sql.Rows) ([]validation.StageMetrics, error) {
	var out []validation.StageMetrics

	for rows.Next() {
		metrics, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan metrics: %w", ErrReadFailed, err)
		}

		out = append(out, metrics)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: metrics rows: %w", ErrReadFailed, err)
	}

	return out, nil
}
