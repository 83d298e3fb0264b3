package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// ErrTriageResponseIncomplete is returned when the LLM triage response parses
// as JSON but lacks the required summary field.
var ErrTriageResponseIncomplete = errors.New("triage response missing summary")

const triageSystemPrompt = "You are a data quality analyst. " +
	"Return JSON with summary, likely_causes, impact, suggested_actions, queries_to_run."

// reviewSampleLimit caps the review rows included in the LLM triage payload.
const reviewSampleLimit = 20

// TriageReport is the operator-facing anomaly triage document persisted to
// anomaly_triage_reports.
type TriageReport struct {
	Summary          string   `json:"summary"`
	LikelyCauses     []string `json:"likely_causes"`
	Impact           string   `json:"impact"`
	SuggestedActions []string `json:"suggested_actions"`
	QueriesToRun     []string `json:"queries_to_run"`
}

// ReviewSample is the slice of a review row shown to the triage LLM.
type ReviewSample struct {
	LeftID       string         `json:"left_id"`
	RightID      string         `json:"right_id"`
	MatcherScore float64        `json:"matcher_score"`
	Signals      map[string]any `json:"signals"`
}

// TriageSource provides the evidence the triager summarizes. The store
// implements it.
type TriageSource interface {
	// AnomaliesForStage returns the stage's anomaly events, newest first.
	AnomaliesForStage(ctx context.Context, runID, entityType string) ([]AnomalyEvent, error)

	// ReviewSamples returns up to limit recent review rows for the stage.
	ReviewSamples(ctx context.Context, runID, entityType string, limit int) ([]ReviewSample, error)
}

// triageRequester is the narrow LLM client surface the triager needs.
type triageRequester interface {
	RequestJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error)
}

type triageClientFactory func(provider, model, apiKey string) (triageRequester, error)

// Triager generates anomaly triage reports. When the reporting LLM surface is
// disabled or misconfigured, or the call fails, it falls back to a
// deterministic report built from the anomaly events alone.
type Triager struct {
	cfg       config.LLMValidation
	source    TriageSource
	logger    *slog.Logger
	newClient triageClientFactory
}

// TriagerOption configures optional Triager behavior.
type TriagerOption func(*Triager)

// withTriageClientFactory substitutes the LLM client constructor in tests.
func withTriageClientFactory(factory triageClientFactory) TriagerOption {
	return func(t *Triager) { t.newClient = factory }
}

// NewTriager builds a Triager over the given evidence source.
func NewTriager(cfg config.LLMValidation, source TriageSource, logger *slog.Logger, opts ...TriagerOption) *Triager {
	triager := &Triager{
		cfg:    cfg,
		source: source,
		logger: logger,
		newClient: func(provider, model, apiKey string) (triageRequester, error) {
			return validation.NewClient(provider, model, apiKey)
		},
	}

	for _, opt := range opts {
		opt(triager)
	}

	return triager
}

// Generate builds the triage report for one stage of one run. The caller
// persists it.
func (t *Triager) Generate(ctx context.Context, runID, entityType string) (TriageReport, error) {
	anomalies, err := t.source.AnomaliesForStage(ctx, runID, entityType)
	if err != nil {
		return TriageReport{}, fmt.Errorf("load anomalies: %w", err)
	}

	if !t.cfg.ReportingLLMEnabled() {
		return fallbackReport(anomalies), nil
	}

	provider := config.GetEnvStr(t.cfg.ProviderEnv, "")
	model := config.GetEnvStr(t.cfg.ModelEnv, "")
	apiKey := config.GetEnvStr(t.cfg.APIKeyEnv, "")

	if provider == "" || model == "" || apiKey == "" {
		t.logger.Warn("triage LLM not configured, using fallback report",
			slog.String("run_id", runID),
			slog.String("entity_type", entityType),
		)

		return fallbackReport(anomalies), nil
	}

	samples, err := t.source.ReviewSamples(ctx, runID, entityType, reviewSampleLimit)
	if err != nil {
		return TriageReport{}, fmt.Errorf("load review samples: %w", err)
	}

	client, err := t.newClient(provider, model, apiKey)
	if err != nil {
		t.logger.Warn("triage LLM client unavailable, using fallback report",
			slog.String("error", err.Error()),
		)

		return fallbackReport(anomalies), nil
	}

	report, err := t.requestReport(ctx, client, runID, entityType, anomalies, samples)
	if err != nil {
		t.logger.Warn("triage LLM call failed, using fallback report",
			slog.String("run_id", runID),
			slog.String("entity_type", entityType),
			slog.String("error", err.Error()),
		)

		return fallbackReport(anomalies), nil
	}

	return report, nil
}

func (t *Triager) requestReport(
	ctx context.Context,
	client triageRequester,
	runID, entityType string,
	anomalies []AnomalyEvent,
	samples []ReviewSample,
) (TriageReport, error) {
	payload, err := json.Marshal(map[string]any{
		"run_id":         runID,
		"entity_type":    entityType,
		"anomalies":      anomalies,
		"review_samples": samples,
	})
	if err != nil {
		return TriageReport{}, fmt.Errorf("marshal triage payload: %w", err)
	}

	document, err := client.RequestJSON(ctx, triageSystemPrompt, string(payload))
	if err != nil {
		return TriageReport{}, err
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return TriageReport{}, fmt.Errorf("remarshal triage response: %w", err)
	}

	var report TriageReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return TriageReport{}, fmt.Errorf("decode triage response: %w", err)
	}

	if report.Summary == "" {
		return TriageReport{}, ErrTriageResponseIncomplete
	}

	return report, nil
}

// fallbackReport is the deterministic report used whenever the LLM path is
// unavailable.
func fallbackReport(anomalies []AnomalyEvent) TriageReport {
	summary := "No anomalies detected."
	if len(anomalies) > 0 {
		summary = "Anomalies detected."
	}

	causes := make([]string, 0, len(anomalies))
	for _, anomaly := range anomalies {
		causes = append(causes, fmt.Sprintf("%s drift (z=%.2f)", anomaly.MetricName, anomaly.ZScore))
	}

	return TriageReport{
		Summary:          summary,
		LikelyCauses:     causes,
		Impact:           "Review pipeline metrics and LLM decisions.",
		SuggestedActions: []string{"Inspect recent matcher thresholds", "Sample review items"},
		QueriesToRun: []string{
			"SELECT * FROM pipeline_run_metrics WHERE run_id = '<RUN_ID>';",
			"SELECT * FROM llm_match_reviews WHERE run_id = '<RUN_ID>' LIMIT 50;",
		},
	}
}
