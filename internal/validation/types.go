// Package validation routes candidate pairs produced by the matchers into
// AUTO_APPROVE, AUTO_REJECT or GRAY_ZONE, and adjudicates the gray zone with
// an LLM validator guarded by a health gate, a per-stage call budget and a
// sliding-window circuit breaker. When the LLM path is unavailable the
// configured fallback policy resolves the remaining gray-zone pairs.
package validation

import "time"

// Decisions an adjudication can produce.
const (
	DecisionMatch   = "MATCH"
	DecisionNoMatch = "NO_MATCH"
	DecisionReview  = "REVIEW"
)

// Review record statuses.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Risk flags attached to adjudication results.
const (
	RiskLLMUnavailable      = "llm_unavailable"
	RiskLLMError            = "llm_error"
	RiskLLMInvalidJSONRetry = "llm_invalid_json_retry"
	RiskLLMFallback         = "llm_fallback"
)

// Reasons recorded in pipeline_run_metrics.llm_disabled_reason when the LLM
// path shuts off mid-stage. The first transition wins.
const (
	ReasonLLMUnavailable     = "llm_unavailable"
	ReasonMaxCallsExceeded   = "max_calls_exceeded"
	ReasonCircuitBreakerOpen = "circuit_breaker_open"
)

// Candidate is the uniform pair representation the router consumes. Index
// points back into the matcher's pair slice so callers can recover the
// original pair after routing. Left/Right carry the normalized payloads shown
// to the LLM; Signals carries per-entity evidence including conflict_flags.
type Candidate struct {
	Index        int
	LeftID       string
	RightID      string
	LeftSource   string
	RightSource  string
	Left         map[string]any
	Right        map[string]any
	MatcherScore float64
	Signals      map[string]any
}

// hasConflict reports whether the adapter raised any conflict flag. A
// conflicted pair is never auto-approved regardless of score.
func (c Candidate) hasConflict() bool {
	flags, ok := c.Signals["conflict_flags"].([]string)

	return ok && len(flags) > 0
}

// Result is the adjudicator's verdict for a single pair.
type Result struct {
	Decision   string   `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
	RiskFlags  []string `json:"risk_flags"`
}

// ReviewItem is one llm_match_reviews row: every pair that went through the
// LLM or a fallback decision produces one.
type ReviewItem struct {
	RunID         string         `json:"run_id"`
	EntityType    string         `json:"entity_type"`
	LeftSource    string         `json:"left_source"`
	LeftID        string         `json:"left_id"`
	RightSource   string         `json:"right_source"`
	RightID       string         `json:"right_id"`
	MatcherScore  float64        `json:"matcher_score"`
	Signals       map[string]any `json:"signals"`
	LLMDecision   string         `json:"llm_decision"`
	LLMConfidence float64        `json:"llm_confidence"`
	Reasons       []string       `json:"reasons"`
	RiskFlags     []string       `json:"risk_flags"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// StageMetrics is one pipeline_run_metrics row, covering a single
// (run, entity type) stage. Served as-is by the quality report endpoint.
type StageMetrics struct {
	RunID                    string    `json:"run_id"`
	EntityType               string    `json:"entity_type"`
	StartedAt                time.Time `json:"started_at"`
	FinishedAt               time.Time `json:"finished_at"`
	TotalCandidates          int       `json:"total_candidates"`
	AutoMatchCount           int       `json:"auto_match_count"`
	AutoRejectCount          int       `json:"auto_reject_count"`
	GrayZoneSentCount        int       `json:"gray_zone_sent_count"`
	LLMMatchCount            int       `json:"llm_match_count"`
	LLMNoMatchCount          int       `json:"llm_no_match_count"`
	LLMReviewCount           int       `json:"llm_review_count"`
	LLMCallCount             int       `json:"llm_call_count"`
	LLMErrorCount            int       `json:"llm_error_count"`
	LLMInvalidJSONRetryCount int       `json:"llm_invalid_json_retry_count"`
	LLMAvgLatencyMS          float64   `json:"llm_avg_latency_ms"`
	LLMFallbackMode          string    `json:"llm_fallback_mode"`
	LLMDisabledReason        string    `json:"llm_disabled_reason"`
}

// Outcome is the result of routing one stage's candidates.
type Outcome struct {
	Approved []Candidate
	Rejected []Candidate
	Reviews  []ReviewItem
	Metrics  StageMetrics
}
