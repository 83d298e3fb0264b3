package config

// Thresholds holds the similarity and confidence cut-offs used by the
// matchers and the validation router. Keys mirror the operator-facing
// thresholds.yml file.
type Thresholds struct {
	TeamSimilarity        float64 `yaml:"TEAM_SIM_THRESHOLD"`
	CompetitionSimilarity float64 `yaml:"COMP_SIM_THRESHOLD"`
	ConfidenceReview      float64 `yaml:"CONFIDENCE_REVIEW"`
	ConfidenceAutoPass    float64 `yaml:"CONFIDENCE_AUTOPASS"`
	DOBPartialScore       float64 `yaml:"DOB_PARTIAL_SCORE"`
}

// DefaultThresholds returns the thresholds used when thresholds.yml is absent.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TeamSimilarity:        0.7,
		CompetitionSimilarity: 0.75,
		ConfidenceReview:      0.6,
		ConfidenceAutoPass:    0.85,
		DOBPartialScore:       0.6,
	}
}

// GrayZone is the half-open confidence band [Low, High) routed to LLM
// adjudication for a given entity type.
type GrayZone struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// CircuitBreakerConfig configures the sliding-window breaker guarding LLM calls.
type CircuitBreakerConfig struct {
	// Window is the number of most recent call outcomes considered.
	Window int `yaml:"window"`
	// MaxFailRate trips the breaker when the windowed failure rate reaches it.
	MaxFailRate float64 `yaml:"max_fail_rate"`
	// MaxInvalidJSONRate trips the breaker when the windowed invalid-JSON
	// retry rate reaches it.
	MaxInvalidJSONRate float64 `yaml:"max_invalid_json_rate"`
}

// LLMValidation holds the llm_validation.yml section controlling gray-zone
// adjudication: the master switch, the per-surface overrides, per-entity
// gray-zone bands, the call budget, the circuit breaker and the fallback
// policy applied when the LLM is unhealthy.
type LLMValidation struct {
	Enabled bool `yaml:"enabled"`

	// MappingEnabled and ReportingEnabled override Enabled for the mapping
	// pipeline and the reporting/triage surface respectively. A nil value
	// falls back to Enabled.
	MappingEnabled   *bool `yaml:"mapping_enabled"`
	ReportingEnabled *bool `yaml:"reporting_enabled"`

	// InternalAPIKeyEnv, ProviderEnv, ModelEnv and APIKeyEnv name the
	// environment variables holding the admin API key and the LLM client's
	// provider, model and API key.
	InternalAPIKeyEnv string `yaml:"internal_api_key_env"`
	ProviderEnv       string `yaml:"provider_env"`
	ModelEnv          string `yaml:"model_env"`
	APIKeyEnv         string `yaml:"api_key_env"`

	GrayZone map[string]GrayZone `yaml:"gray_zone"`

	MaxCallsPerEntityTypePerRun int `yaml:"max_calls_per_entity_type_per_run"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// FallbackMode is applied to gray-zone candidates when the LLM is
	// unavailable, over budget or circuit-broken: "auto_approve" or "review".
	FallbackMode string `yaml:"fallback_mode_when_llm_unhealthy"`
}

// Fallback modes accepted by LLMValidation.FallbackMode.
const (
	FallbackAutoApprove = "auto_approve"
	FallbackReview      = "review"
)

// DefaultLLMValidation returns the configuration used when llm_validation.yml
// is absent: adjudication disabled, conservative review fallback.
func DefaultLLMValidation() LLMValidation {
	return LLMValidation{
		Enabled:                     false,
		InternalAPIKeyEnv:           "INTERNAL_API_KEY",
		ProviderEnv:                 "LLM_PROVIDER",
		ModelEnv:                    "LLM_MODEL",
		APIKeyEnv:                   "LLM_API_KEY",
		GrayZone:                    make(map[string]GrayZone),
		MaxCallsPerEntityTypePerRun: 50,
		CircuitBreaker: CircuitBreakerConfig{
			Window:             20,
			MaxFailRate:        0.5,
			MaxInvalidJSONRate: 0.5,
		},
		FallbackMode: FallbackReview,
	}
}

// MappingLLMEnabled reports whether LLM adjudication is enabled for the
// mapping pipeline, honouring the mapping_enabled override.
func (c LLMValidation) MappingLLMEnabled() bool {
	if c.MappingEnabled != nil {
		return *c.MappingEnabled
	}

	return c.Enabled
}

// ReportingLLMEnabled reports whether LLM triage is enabled for the reporting
// surface, honouring the reporting_enabled override.
func (c LLMValidation) ReportingLLMEnabled() bool {
	if c.ReportingEnabled != nil {
		return *c.ReportingEnabled
	}

	return c.Enabled
}

// DefaultGrayZone returns the band applied to entity types without a
// configured override.
func DefaultGrayZone() GrayZone {
	return GrayZone{Low: 0.6, High: 0.9}
}

// ThresholdFor returns the gray-zone band for the given entity type, falling
// back to DefaultGrayZone when no per-entity band is configured.
func (c LLMValidation) ThresholdFor(entityType string) GrayZone {
	if zone, ok := c.GrayZone[entityType]; ok {
		return zone
	}

	return DefaultGrayZone()
}

// QualityGates holds the run-level gate limits from quality_gates.yml.
type QualityGates struct {
	MaxLLMReviewRate            float64 `yaml:"max_llm_review_rate"`
	MaxGrayZoneRate             float64 `yaml:"max_gray_zone_rate"`
	MaxLLMErrorRate             float64 `yaml:"max_llm_error_rate"`
	FailOnHighSeverityAnomalies bool    `yaml:"fail_on_high_severity_anomalies"`
}

// DefaultQualityGates returns the gate limits used when quality_gates.yml is absent.
func DefaultQualityGates() QualityGates {
	return QualityGates{
		MaxLLMReviewRate:            0.15,
		MaxGrayZoneRate:             0.35,
		MaxLLMErrorRate:             0.05,
		FailOnHighSeverityAnomalies: true,
	}
}

// Normalization holds normalization.yml: country canonicalization and the
// sponsor phrases stripped from competition names.
type Normalization struct {
	Countries           map[string]string `yaml:"countries"`
	CompetitionSponsors []string          `yaml:"competition_sponsors"`
}

// DefaultNormalization returns an empty normalization table set.
func DefaultNormalization() Normalization {
	return Normalization{
		Countries:           make(map[string]string),
		CompetitionSponsors: []string{},
	}
}

// MappingRules holds mapping_rules.yml: operator-curated overrides applied
// before fuzzy matching.
type MappingRules struct {
	TeamNameAliases map[string]string `yaml:"team_name_aliases"`
}

// DefaultMappingRules returns an empty rule set.
func DefaultMappingRules() MappingRules {
	return MappingRules{
		TeamNameAliases: make(map[string]string),
	}
}
