package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/config"
)

// fakeTriageSource scripts the evidence rows behind the triager.
type fakeTriageSource struct {
	anomalies []AnomalyEvent
	samples   []ReviewSample
}

func (f *fakeTriageSource) AnomaliesForStage(context.Context, string, string) ([]AnomalyEvent, error) {
	return f.anomalies, nil
}

func (f *fakeTriageSource) ReviewSamples(context.Context, string, string, int) ([]ReviewSample, error) {
	return f.samples, nil
}

// fakeTriageClient scripts the LLM response.
type fakeTriageClient struct {
	response map[string]any
	err      error
}

func (f *fakeTriageClient) RequestJSON(context.Context, string, string) (map[string]any, error) {
	return f.response, f.err
}

func reportingEnabledConfig() config.LLMValidation {
	cfg := config.DefaultLLMValidation()
	cfg.Enabled = true

	return cfg
}

func setTriageEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_MODEL", "gpt-test")
	t.Setenv("LLM_API_KEY", "key")
}

func TestTriager_DisabledUsesFallbackReport(t *testing.T) {
	source := &fakeTriageSource{anomalies: []AnomalyEvent{
		{MetricName: "gray_zone_rate", ZScore: 3.5},
	}}
	triager := NewTriager(config.DefaultLLMValidation(), source, slog.Default())

	report, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Equal(t, "Anomalies detected.", report.Summary)
	assert.Equal(t, []string{"gray_zone_rate drift (z=3.50)"}, report.LikelyCauses)
	assert.NotEmpty(t, report.QueriesToRun)
}

func TestTriager_NoAnomaliesFallbackSummary(t *testing.T) {
	triager := NewTriager(config.DefaultLLMValidation(), &fakeTriageSource{}, slog.Default())

	report, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Equal(t, "No anomalies detected.", report.Summary)
	assert.Empty(t, report.LikelyCauses)
}

func TestTriager_ReportingDisabledOverride(t *testing.T) {
	setTriageEnv(t)

	reportingOff := false
	cfg := reportingEnabledConfig()
	cfg.ReportingEnabled = &reportingOff

	called := false
	triager := NewTriager(cfg, &fakeTriageSource{}, slog.Default(), withTriageClientFactory(
		func(string, string, string) (triageRequester, error) {
			called = true

			return &fakeTriageClient{}, nil
		},
	))

	_, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.False(t, called, "reporting_enabled=false must keep the LLM out of the path")
}

func TestTriager_MissingEnvUsesFallback(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_API_KEY", "")

	triager := NewTriager(reportingEnabledConfig(), &fakeTriageSource{}, slog.Default())

	report, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Equal(t, "No anomalies detected.", report.Summary)
}

func TestTriager_LLMReportParsed(t *testing.T) {
	setTriageEnv(t)

	client := &fakeTriageClient{response: map[string]any{
		"summary":           "Gray zone spiked after threshold change.",
		"likely_causes":     []any{"thresholds.yml edited"},
		"impact":            "More manual reviews queued.",
		"suggested_actions": []any{"revert threshold"},
		"queries_to_run":    []any{"SELECT 1;"},
	}}
	triager := NewTriager(reportingEnabledConfig(), &fakeTriageSource{}, slog.Default(),
		withTriageClientFactory(func(string, string, string) (triageRequester, error) {
			return client, nil
		}))

	report, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Equal(t, "Gray zone spiked after threshold change.", report.Summary)
	assert.Equal(t, []string{"thresholds.yml edited"}, report.LikelyCauses)
	assert.Equal(t, []string{"SELECT 1;"}, report.QueriesToRun)
}

func TestTriager_LLMErrorFallsBack(t *testing.T) {
	setTriageEnv(t)

	source := &fakeTriageSource{anomalies: []AnomalyEvent{
		{MetricName: "auto_match_rate", ZScore: -2.2},
	}}
	triager := NewTriager(reportingEnabledConfig(), source, slog.Default(),
		withTriageClientFactory(func(string, string, string) (triageRequester, error) {
			return &fakeTriageClient{err: errors.New("timeout")}, nil
		}))

	report, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Equal(t, "Anomalies detected.", report.Summary)
	assert.Equal(t, []string{"auto_match_rate drift (z=-2.20)"}, report.LikelyCauses)
}

func TestTriager_IncompleteLLMResponseFallsBack(t *testing.T) {
	setTriageEnv(t)

	triager := NewTriager(reportingEnabledConfig(), &fakeTriageSource{}, slog.Default(),
		withTriageClientFactory(func(string, string, string) (triageRequester, error) {
			return &fakeTriageClient{response: map[string]any{"unexpected": true}}, nil
		}))

	report, err := triager.Generate(context.Background(), "run-1", "player")

	require.NoError(t, err)
	assert.Equal(t, "No anomalies detected.", report.Summary)
}
