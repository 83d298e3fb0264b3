package validation

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/config"
)

// fakeRequester scripts the client behavior behind the validator.
type fakeRequester struct {
	response    map[string]any
	err         error
	latencyMS   float64
	invalidJSON bool
}

func (f *fakeRequester) RequestJSON(context.Context, string, string) (map[string]any, error) {
	return f.response, f.err
}

func (f *fakeRequester) LastLatencyMS() float64     { return f.latencyMS }
func (f *fakeRequester) LastInvalidJSONRetry() bool { return f.invalidJSON }

func enabledLLMConfig() config.LLMValidation {
	cfg := config.DefaultLLMValidation()
	cfg.Enabled = true

	return cfg
}

func setLLMEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_MODEL", "gpt-test")
	t.Setenv("LLM_API_KEY", "key")
}

func newFakeValidator(cfg config.LLMValidation, requester *fakeRequester) *Validator {
	return NewValidator(cfg, slog.Default(), withClientFactory(
		func(string, string, string) (jsonRequester, error) { return requester, nil },
	))
}

func TestValidator_DisabledReturnsUnavailableReview(t *testing.T) {
	cfg := config.DefaultLLMValidation() // disabled
	validator := NewValidator(cfg, slog.Default())

	assert.False(t, validator.Available())

	result, latency := validator.ValidatePair(context.Background(), "team", nil, nil, 0.8, nil)

	assert.Equal(t, DecisionReview, result.Decision)
	assert.Contains(t, result.RiskFlags, RiskLLMUnavailable)
	assert.Zero(t, latency)
}

func TestValidator_MissingEnvVarsUnavailable(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_API_KEY", "")

	validator := NewValidator(enabledLLMConfig(), slog.Default())

	assert.False(t, validator.Available())
}

func TestValidator_MappingEnabledOverridesEnabled(t *testing.T) {
	setLLMEnv(t)

	mappingOff := false
	cfg := enabledLLMConfig()
	cfg.MappingEnabled = &mappingOff

	validator := NewValidator(cfg, slog.Default())

	assert.False(t, validator.Available(), "mapping_enabled=false wins over enabled=true")
}

func TestValidator_ParsesStructuredVerdict(t *testing.T) {
	setLLMEnv(t)

	requester := &fakeRequester{
		response: map[string]any{
			"decision":   "MATCH",
			"confidence": 0.92,
			"reasons":    []any{"names agree"},
			"risk_flags": []any{},
		},
		latencyMS: 42.0,
	}
	validator := newFakeValidator(enabledLLMConfig(), requester)

	result, latency := validator.ValidatePair(context.Background(), "team",
		map[string]any{"name": "alpha fc"}, map[string]any{"name": "alpha fc"}, 0.8, map[string]any{})

	assert.Equal(t, DecisionMatch, result.Decision)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, []string{"names agree"}, result.Reasons)
	assert.InDelta(t, 42.0, latency, 1e-9)
}

func TestValidator_ClientErrorBecomesReviewWithErrorFlag(t *testing.T) {
	setLLMEnv(t)

	requester := &fakeRequester{err: errors.New("connection refused"), latencyMS: 7.0}
	validator := newFakeValidator(enabledLLMConfig(), requester)

	result, latency := validator.ValidatePair(context.Background(), "team", nil, nil, 0.8, nil)

	assert.Equal(t, DecisionReview, result.Decision)
	assert.Contains(t, result.RiskFlags, RiskLLMError)
	assert.InDelta(t, 7.0, latency, 1e-9)
}

func TestValidator_InvalidJSONRetryFlagAppended(t *testing.T) {
	setLLMEnv(t)

	requester := &fakeRequester{
		response: map[string]any{
			"decision":   "NO_MATCH",
			"confidence": 0.1,
			"reasons":    []any{},
			"risk_flags": []any{},
		},
		invalidJSON: true,
	}
	validator := newFakeValidator(enabledLLMConfig(), requester)

	result, _ := validator.ValidatePair(context.Background(), "team", nil, nil, 0.8, nil)

	assert.Equal(t, DecisionNoMatch, result.Decision)
	assert.Contains(t, result.RiskFlags, RiskLLMInvalidJSONRetry)
}

func TestValidator_UnknownDecisionBecomesErrorReview(t *testing.T) {
	setLLMEnv(t)

	requester := &fakeRequester{response: map[string]any{"decision": "MAYBE"}}
	validator := newFakeValidator(enabledLLMConfig(), requester)

	result, _ := validator.ValidatePair(context.Background(), "team", nil, nil, 0.8, nil)

	assert.Equal(t, DecisionReview, result.Decision)
	assert.Contains(t, result.RiskFlags, RiskLLMError)
}

func TestValidator_ConfidenceClamped(t *testing.T) {
	setLLMEnv(t)

	requester := &fakeRequester{response: map[string]any{"decision": "MATCH", "confidence": 1.7}}
	validator := newFakeValidator(enabledLLMConfig(), requester)

	result, _ := validator.ValidatePair(context.Background(), "team", nil, nil, 0.8, nil)

	require.Equal(t, DecisionMatch, result.Decision)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}
