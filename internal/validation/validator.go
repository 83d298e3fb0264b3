package validation

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/uniscore-io/uniscore/internal/config"
)

// systemPrompt frames every adjudication request.
const systemPrompt = "You are a strict entity-resolution validator. " +
	"Return JSON with decision MATCH, NO_MATCH, or REVIEW."

type (
	// Adjudicator is the router's view of the LLM validator: one verdict per
	// gray-zone pair plus the call latency for metrics.
	Adjudicator interface {
		// Available reports whether the LLM path is usable for the mapping
		// pipeline: adjudication enabled and provider credentials present.
		Available() bool

		// ValidatePair adjudicates a single candidate pair. Failures never
		// surface as errors: they come back as a REVIEW verdict carrying the
		// llm_error risk flag, so the router can feed its circuit breaker.
		ValidatePair(
			ctx context.Context,
			entityType string,
			left, right map[string]any,
			matcherScore float64,
			signals map[string]any,
		) (Result, float64)
	}

	// jsonRequester is the slice of Client the validator depends on, kept
	// narrow so tests can substitute a scripted fake.
	jsonRequester interface {
		RequestJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error)
		LastLatencyMS() float64
		LastInvalidJSONRetry() bool
	}

	// Validator adjudicates gray-zone pairs through an LLM provider resolved
	// from the environment variables named in llm_validation.yml.
	Validator struct {
		cfg       config.LLMValidation
		timeout   time.Duration
		logger    *slog.Logger
		newClient func(provider, model, apiKey string) (jsonRequester, error)
	}

	// ValidatorOption configures optional Validator behavior.
	ValidatorOption func(*Validator)
)

var _ Adjudicator = (*Validator)(nil)

// WithValidatorTimeout overrides the per-call timeout.
func WithValidatorTimeout(timeout time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.timeout = timeout
	}
}

// withClientFactory substitutes the client constructor. Tests only.
func withClientFactory(factory func(provider, model, apiKey string) (jsonRequester, error)) ValidatorOption {
	return func(v *Validator) {
		v.newClient = factory
	}
}

// NewValidator builds a Validator from the llm_validation.yml section.
func NewValidator(cfg config.LLMValidation, logger *slog.Logger, opts ...ValidatorOption) *Validator {
	validator := &Validator{
		cfg:     cfg,
		timeout: DefaultTimeout,
		logger:  logger,
		newClient: func(provider, model, apiKey string) (jsonRequester, error) {
			return NewClient(provider, model, apiKey, WithLogger(logger))
		},
	}

	for _, opt := range opts {
		opt(validator)
	}

	return validator
}

// Available reports whether the mapping pipeline may invoke the LLM: the
// mapping surface is enabled and the provider, model and API key environment
// variables all resolve to non-empty values.
func (v *Validator) Available() bool {
	if !v.cfg.MappingLLMEnabled() {
		return false
	}

	return os.Getenv(v.cfg.ProviderEnv) != "" &&
		os.Getenv(v.cfg.ModelEnv) != "" &&
		os.Getenv(v.cfg.APIKeyEnv) != ""
}

// ValidatePair sends one pair to the LLM and parses its structured verdict.
func (v *Validator) ValidatePair(
	ctx context.Context,
	entityType string,
	left, right map[string]any,
	matcherScore float64,
	signals map[string]any,
) (Result, float64) {
	if !v.Available() {
		return unavailableResult(), 0
	}

	client, err := v.newClient(
		os.Getenv(v.cfg.ProviderEnv),
		os.Getenv(v.cfg.ModelEnv),
		os.Getenv(v.cfg.APIKeyEnv),
	)
	if err != nil {
		v.logger.Warn("LLM client construction failed",
			slog.String("entity_type", entityType),
			slog.String("error", err.Error()))

		return errorResult(), 0
	}

	payload := map[string]any{
		"entity_type":   entityType,
		"matcher_score": matcherScore,
		"left":          left,
		"right":         right,
		"signals":       signals,
		"response_schema": map[string]any{
			"decision":   "MATCH|NO_MATCH|REVIEW",
			"confidence": "0..1",
			"reasons":    "list[str]",
			"risk_flags": "list[str]",
		},
	}

	userPrompt, err := json.Marshal(payload)
	if err != nil {
		return errorResult(), 0
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	response, err := client.RequestJSON(callCtx, systemPrompt, string(userPrompt))
	latencyMS := client.LastLatencyMS()

	if err != nil {
		v.logger.Warn("LLM validation failed",
			slog.String("entity_type", entityType),
			slog.String("error", err.Error()))

		result := errorResult()
		if client.LastInvalidJSONRetry() {
			result.RiskFlags = append(result.RiskFlags, RiskLLMInvalidJSONRetry)
		}

		return result, latencyMS
	}

	result, ok := parseResult(response)
	if !ok {
		result = errorResult()
	}

	if client.LastInvalidJSONRetry() && !hasFlag(result.RiskFlags, RiskLLMInvalidJSONRetry) {
		result.RiskFlags = append(result.RiskFlags, RiskLLMInvalidJSONRetry)
	}

	return result, latencyMS
}

// parseResult decodes the provider's verdict document into a Result, rejecting
// unknown decisions and clamping confidence to [0, 1].
func parseResult(document map[string]any) (Result, bool) {
	raw, err := json.Marshal(document)
	if err != nil {
		return Result{}, false
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false
	}

	switch result.Decision {
	case DecisionMatch, DecisionNoMatch, DecisionReview:
	default:
		return Result{}, false
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}

	if result.Confidence > 1 {
		result.Confidence = 1
	}

	if result.Reasons == nil {
		result.Reasons = []string{}
	}

	if result.RiskFlags == nil {
		result.RiskFlags = []string{}
	}

	return result, true
}

func unavailableResult() Result {
	return Result{
		Decision:   DecisionReview,
		Confidence: 0,
		Reasons:    []string{"LLM unavailable - validator should not have been called"},
		RiskFlags:  []string{RiskLLMUnavailable},
	}
}

func errorResult() Result {
	return Result{
		Decision:   DecisionReview,
		Confidence: 0,
		Reasons:    []string{"LLM validation failed"},
		RiskFlags:  []string{RiskLLMError},
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}

	return false
}
