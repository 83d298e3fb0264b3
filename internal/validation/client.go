package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single LLM request, including the invalid-JSON retry
// round trip.
const DefaultTimeout = 12 * time.Second

// APIURLEnvVar overrides the provider endpoint when set.
const APIURLEnvVar = "LLM_API_URL"

// openAIChatCompletionsURL is the default endpoint for the openai provider.
const openAIChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

// retryPreamble is prepended to the user prompt on the single invalid-JSON retry.
const retryPreamble = "Return valid JSON only. Do not include commentary or markdown."

// Sentinel errors for LLM client operations.
var (
	// ErrAPIURLRequired is returned when no endpoint can be resolved for the provider.
	ErrAPIURLRequired = errors.New("LLM API URL is required")

	// ErrRequestFailed is returned on transport or HTTP-status failures.
	ErrRequestFailed = errors.New("LLM request failed")

	// ErrInvalidJSONResponse is returned when the provider's content is not
	// valid JSON even after the single retry.
	ErrInvalidJSONResponse = errors.New("invalid JSON response")

	// ErrUnexpectedResponseFormat is returned when no content field can be
	// extracted from the provider response.
	ErrUnexpectedResponseFormat = errors.New("unexpected LLM response format")
)

type (
	// Client sends JSON-only adjudication requests to an LLM provider. It is a
	// thin chat-completions client: one POST per request with bearer auth and
	// temperature zero, plus a single retry when the reply is not valid JSON.
	// Clients are not safe for concurrent use; the router calls sequentially.
	Client struct {
		provider   string
		model      string
		apiKey     string
		apiURL     string
		httpClient *http.Client
		logger     *slog.Logger

		lastLatencyMS        float64
		lastRequestID        string
		lastInvalidJSONRetry bool
	}

	// ClientOption configures optional Client behavior.
	ClientOption func(*Client)

	// chatMessage is one entry of the two-message request payload.
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// chatRequest is the provider-facing request body.
	chatRequest struct {
		Model       string        `json:"model"`
		Temperature float64       `json:"temperature"`
		Messages    []chatMessage `json:"messages"`
	}
)

// WithAPIURL overrides the resolved provider endpoint.
func WithAPIURL(url string) ClientOption {
	return func(c *Client) {
		c.apiURL = url
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the structured logger used for request telemetry.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a Client for the given provider. The endpoint resolves in
// order: the LLM_API_URL environment variable, the WithAPIURL option, then the
// provider's well-known default. Returns ErrAPIURLRequired when none apply.
func NewClient(provider, model, apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		provider:   provider,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if envURL := os.Getenv(APIURLEnvVar); envURL != "" {
		client.apiURL = envURL
	}

	if client.apiURL == "" && provider == "openai" {
		client.apiURL = openAIChatCompletionsURL
	}

	if client.apiURL == "" {
		return nil, fmt.Errorf("%w: provider=%s", ErrAPIURLRequired, provider)
	}

	return client, nil
}

// LastLatencyMS returns the total latency of the most recent RequestJSON call,
// summing both round trips when the invalid-JSON retry fired.
func (c *Client) LastLatencyMS() float64 { return c.lastLatencyMS }

// LastRequestID returns the request id assigned to the most recent call.
func (c *Client) LastRequestID() string { return c.lastRequestID }

// LastInvalidJSONRetry reports whether the most recent call needed the
// invalid-JSON retry.
func (c *Client) LastInvalidJSONRetry() bool { return c.lastInvalidJSONRetry }

// RequestJSON sends the two-message prompt and decodes the provider's content
// as a JSON document. A reply that is not valid JSON is retried exactly once
// with an instructional preamble; a second decode failure is an error.
func (c *Client) RequestJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	requestID := uuid.NewString()
	c.lastRequestID = requestID
	c.lastInvalidJSONRetry = false
	c.lastLatencyMS = 0

	content, firstLatency, err := c.send(ctx, systemPrompt, userPrompt, requestID)
	c.lastLatencyMS = firstLatency

	if err != nil {
		return nil, err
	}

	var document map[string]any
	if err := json.Unmarshal([]byte(content), &document); err == nil {
		return document, nil
	}

	c.lastInvalidJSONRetry = true

	content, retryLatency, err := c.send(ctx, systemPrompt, retryPreamble+"\n\n"+userPrompt, requestID)
	c.lastLatencyMS = firstLatency + retryLatency

	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return nil, fmt.Errorf("%w: provider=%s request_id=%s", ErrInvalidJSONResponse, c.provider, requestID)
	}

	return document, nil
}

// send performs one POST and extracts the textual content from the provider
// response. Latency is reported even on failure.
func (c *Client) send(ctx context.Context, systemPrompt, userPrompt, requestID string) (string, float64, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: provider=%s request_id=%s: %v", ErrRequestFailed, c.provider, requestID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("%w: provider=%s request_id=%s: %v", ErrRequestFailed, c.provider, requestID, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latencyMS := float64(time.Since(start)) / float64(time.Millisecond)

	c.logger.Debug("LLM request completed",
		slog.String("request_id", requestID),
		slog.String("provider", c.provider),
		slog.Float64("latency_ms", latencyMS))

	if err != nil {
		return "", latencyMS, fmt.Errorf("%w: provider=%s request_id=%s: %v", ErrRequestFailed, c.provider, requestID, err)
	}

	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", latencyMS, fmt.Errorf("%w: provider=%s request_id=%s: %v", ErrRequestFailed, c.provider, requestID, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", latencyMS, fmt.Errorf("%w: provider=%s request_id=%s status=%d",
			ErrRequestFailed, c.provider, requestID, resp.StatusCode)
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return "", latencyMS, fmt.Errorf("%w: provider=%s request_id=%s", ErrInvalidJSONResponse, c.provider, requestID)
	}

	content, ok := extractContent(data)
	if !ok {
		return "", latencyMS, fmt.Errorf("%w: provider=%s request_id=%s", ErrUnexpectedResponseFormat, c.provider, requestID)
	}

	return content, latencyMS, nil
}

// extractContent pulls the reply text out of a provider response, trying the
// shapes the supported providers emit: a top-level content string, then
// choices[0].message.content, then choices[0].text.
func extractContent(data map[string]any) (string, bool) {
	if content, ok := data["content"].(string); ok {
		return content, true
	}

	choices, ok := data["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}

	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}

	if message, ok := first["message"].(map[string]any); ok {
		if content, ok := message["content"].(string); ok {
			return content, true
		}
	}

	if text, ok := first["text"].(string); ok {
		return text, true
	}

	return "", false
}
