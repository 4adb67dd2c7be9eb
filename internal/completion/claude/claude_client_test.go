package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/completion"
	"rxscan/internal/completion/claude"
	"rxscan/internal/config"
	"rxscan/internal/port"
)

func newTestClient(serverURL string) *claude.Client {
	cfg := &config.ProviderConfig{
		Provider:     "claude",
		APIKey:       "test-api-key",
		DefaultModel: "claude-sonnet-4-20250514",
		TimeoutSecs:  30,
	}
	return claude.NewClientWithEndpoint(cfg, serverURL)
}

func successResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
}

func TestClient_Complete_URLImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, "be exact", reqBody["system"])
		assert.Equal(t, float64(4096), reqBody["max_tokens"])

		msg := reqBody["messages"].([]interface{})[0].(map[string]interface{})
		content := msg["content"].([]interface{})
		require.Len(t, content, 2)
		img := content[0].(map[string]interface{})
		assert.Equal(t, "image", img["type"])
		source := img["source"].(map[string]interface{})
		assert.Equal(t, "url", source["type"])
		assert.Equal(t, "https://img.example.com/rx.png", source["url"])

		_ = json.NewEncoder(w).Encode(successResponse("Patient's full name: Jane Roe"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	text, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:   "transcribe",
		System:   "be exact",
		ImageURL: "https://img.example.com/rx.png",
	})

	require.NoError(t, err)
	assert.Equal(t, "Patient's full name: Jane Roe", text)
}

func TestClient_Complete_DataURLImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		msg := reqBody["messages"].([]interface{})[0].(map[string]interface{})
		img := msg["content"].([]interface{})[0].(map[string]interface{})
		source := img["source"].(map[string]interface{})
		assert.Equal(t, "base64", source["type"])
		assert.Equal(t, "image/png", source["media_type"])
		assert.Equal(t, "aGVsbG8=", source["data"])

		_ = json.NewEncoder(w).Encode(successResponse("ok"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:   "transcribe",
		ImageURL: "data:image/png;base64,aGVsbG8=",
	})
	require.NoError(t, err)
}

func TestClient_Complete_InvalidDataURL(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	_, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:   "transcribe",
		ImageURL: "data:image/png,not-base64",
	})
	assert.ErrorIs(t, err, completion.ErrInvalidImage)
}

func TestClient_Complete_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, completion.ErrEmptyCompletion)
}

func TestClient_Complete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "x"})

	var rlErr *completion.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, float64(60), rlErr.RetryAfter.Seconds())
}
