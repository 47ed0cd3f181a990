package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req groqChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "llama-3.3-70b-versatile", req.Model)
		require.Len(t, req.Messages, 2, "system prompt plus user message")
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.InDelta(t, 0.85, req.Temperature, 1e-9)

		resp := groqChatResponse{Model: req.Model}
		resp.Choices = []struct {
			Index        int         `json:"index"`
			Message      groqMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		}{
			{Message: groqMessage{Role: "assistant", Content: "[EXPRESSION: WARM] I'm here."}, FinishReason: "stop"},
		}
		resp.Usage.PromptTokens = 42
		resp.Usage.CompletionTokens = 8
		resp.Usage.TotalTokens = 50
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewGroqProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "test-key"})

	out, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "you are a companion",
		Messages:     []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[EXPRESSION: WARM] I'm here.", out.Content)
	assert.Equal(t, 50, out.TokensUsed)
	assert.Equal(t, "stop", out.FinishReason)
}

func TestGroqChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGroqProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "test-key"})

	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGroqUnconfigured(t *testing.T) {
	p := NewGroqProvider(nil)
	assert.False(t, p.Available())

	_, err := p.Chat(context.Background(), &ChatRequest{})
	assert.Error(t, err)
}
