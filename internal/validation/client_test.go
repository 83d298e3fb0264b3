package validation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("openai", "gpt-test", "key", WithAPIURL(server.URL))
	require.NoError(t, err)

	return client, server
}

func TestClient_RequestJSON_TopLevelContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 0.0, req["temperature"], 1e-9)
		assert.Len(t, req["messages"], 2)

		_ = json.NewEncoder(w).Encode(map[string]any{"content": `{"decision":"MATCH"}`})
	})

	document, err := client.RequestJSON(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.Equal(t, "MATCH", document["decision"])
	assert.False(t, client.LastInvalidJSONRetry())
	assert.NotEmpty(t, client.LastRequestID())
}

func TestClient_RequestJSON_ChoicesMessageContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	})

	document, err := client.RequestJSON(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.Equal(t, true, document["ok"])
}

func TestClient_RequestJSON_ChoicesText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"text": `{"ok":1}`}},
		})
	})

	document, err := client.RequestJSON(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.InDelta(t, 1.0, document["ok"], 1e-9)
}

func TestClient_RequestJSON_RetriesOnceOnInvalidJSON(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		messages := req["messages"].([]any)
		user := messages[1].(map[string]any)["content"].(string)

		if calls == 1 {
			assert.False(t, strings.Contains(user, "Return valid JSON only"))
			_ = json.NewEncoder(w).Encode(map[string]any{"content": "not json at all"})

			return
		}

		assert.True(t, strings.HasPrefix(user, "Return valid JSON only"))
		_ = json.NewEncoder(w).Encode(map[string]any{"content": `{"decision":"REVIEW"}`})
	})

	document, err := client.RequestJSON(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, client.LastInvalidJSONRetry())
	assert.Equal(t, "REVIEW", document["decision"])
	assert.Positive(t, client.LastLatencyMS(), "latency sums both round trips")
}

func TestClient_RequestJSON_SecondDecodeFailureErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "still not json"})
	})

	_, err := client.RequestJSON(context.Background(), "system", "user")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidJSONResponse)
	assert.Contains(t, err.Error(), client.LastRequestID())
}

func TestClient_RequestJSON_HTTPErrorSurfacesRequestID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.RequestJSON(context.Background(), "system", "user")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), client.LastRequestID())
}

func TestClient_RequestJSON_UnexpectedFormat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"something": "else"})
	})

	_, err := client.RequestJSON(context.Background(), "system", "user")

	assert.ErrorIs(t, err, ErrUnexpectedResponseFormat)
}

func TestNewClient_RequiresResolvableURL(t *testing.T) {
	_, err := NewClient("custom-provider", "model", "key")

	assert.ErrorIs(t, err, ErrAPIURLRequired)
}

func TestNewClient_OpenAIDefaultURL(t *testing.T) {
	client, err := NewClient("openai", "model", "key")

	require.NoError(t, err)
	assert.Equal(t, openAIChatCompletionsURL, client.apiURL)
}
