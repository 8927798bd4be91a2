package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostUSD(t *testing.T) {
	t.Run("KnownModels", func(t *testing.T) {
		// 1000 in + 500 out at $3/$15 per MTok
		cost := CostUSD("claude-sonnet-4-5", 1000, 500)
		assert.InDelta(t, 0.0105, cost, 1e-9)

		cost = CostUSD("claude-haiku-4-5", 1_000_000, 1_000_000)
		assert.InDelta(t, 6.0, cost, 1e-9)

		cost = CostUSD("gemini-2.5-flash-image", 10, 1290)
		assert.InDelta(t, 10.0/1_000_000*0.30+1290.0/1_000_000*30.00, cost, 1e-9)
	})

	t.Run("UnknownModelCostsZero", func(t *testing.T) {
		assert.Equal(t, 0.0, CostUSD("some-future-model", 5000, 5000))
	})

	t.Run("ZeroTokens", func(t *testing.T) {
		assert.Equal(t, 0.0, CostUSD("claude-sonnet-4-5", 0, 0))
	})
}

func TestKnownModel(t *testing.T) {
	assert.True(t, KnownModel("claude-sonnet-4-5"))
	assert.True(t, KnownModel("gemini-2.5-pro"))
	assert.False(t, KnownModel("gpt-99"))
}

func TestClaudeClientComplete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotVersion, gotAPIKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotVersion = r.Header.Get("anthropic-version")
			gotAPIKey = r.Header.Get("x-api-key")
			assert.Equal(t, "/v1/messages", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "msg_01",
				"content": [{"type": "text", "text": "{\"score\": 80}"}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 312, "output_tokens": 97}
			}`))
		}))
		defer server.Close()

		client := NewClaudeClient(server.URL, "test-key", "claude-sonnet-4-5", 5*time.Second)
		result, err := client.Complete(context.Background(), CompletionRequest{
			System: "answer with JSON",
			Prompt: "qualify this lead",
		})

		require.NoError(t, err)
		assert.Equal(t, `{"score": 80}`, result.Text)
		assert.Equal(t, 312, result.TokensIn)
		assert.Equal(t, 97, result.TokensOut)
		assert.GreaterOrEqual(t, result.LatencyMs, int64(0))
		assert.Equal(t, anthropicVersion, gotVersion)
		assert.Equal(t, "test-key", gotAPIKey)
	})

	t.Run("TemperatureForwarded", func(t *testing.T) {
		var bodies []map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			bodies = append(bodies, body)

			w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "usage": {"input_tokens": 1, "output_tokens": 1}}`))
		}))
		defer server.Close()

		client := NewClaudeClient(server.URL, "test-key", "claude-sonnet-4-5", 5*time.Second)

		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "a", Temperature: 0.2})
		require.NoError(t, err)
		_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "b"})
		require.NoError(t, err)

		require.Len(t, bodies, 2)
		assert.InDelta(t, 0.2, bodies[0]["temperature"], 1e-9)

		// Zero means provider default, so the field is omitted
		_, present := bodies[1]["temperature"]
		assert.False(t, present)
	})

	t.Run("ConcatenatesTextBlocks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"content": [
					{"type": "text", "text": "part one "},
					{"type": "thinking", "text": "ignored"},
					{"type": "text", "text": "part two"}
				],
				"usage": {"input_tokens": 10, "output_tokens": 5}
			}`))
		}))
		defer server.Close()

		client := NewClaudeClient(server.URL, "k", "claude-sonnet-4-5", 5*time.Second)
		result, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hello"})

		require.NoError(t, err)
		assert.Equal(t, "part one part two", result.Text)
	})

	t.Run("APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "rate limited"}}`))
		}))
		defer server.Close()

		client := NewClaudeClient(server.URL, "k", "claude-sonnet-4-5", 5*time.Second)
		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hello"})

		require.Error(t, err)
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, "claude", provErr.Provider)
		assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
		assert.Equal(t, "rate limited", provErr.Message)
		assert.False(t, provErr.Timeout)
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewClaudeClient(server.URL, "k", "claude-sonnet-4-5", 20*time.Millisecond)
		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hello"})

		require.Error(t, err)
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.True(t, provErr.Timeout)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json at all`))
		}))
		defer server.Close()

		client := NewClaudeClient(server.URL, "k", "claude-sonnet-4-5", 5*time.Second)
		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hello"})

		require.Error(t, err)
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Contains(t, provErr.Message, "malformed response body")
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		client := NewClaudeClient("", "k", "claude-sonnet-4-5", 0)
		assert.Equal(t, "https://api.anthropic.com", client.BaseURL)
		assert.Equal(t, 60*time.Second, client.Timeout)
		assert.Equal(t, "claude", client.Provider())
		assert.Equal(t, "claude-sonnet-4-5", client.Model())
	})
}
