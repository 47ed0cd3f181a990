// Package llm wraps the chat-completion backends the companion talks
// through. Groq is the default for its low latency; anything speaking the
// OpenAI chat format can slot in behind the Provider interface.
package llm

import (
	"context"
	"io"
	"time"
)

// MaxErrorBodySize caps how much of an error response body is read back
// into error messages.
const MaxErrorBodySize = 1 * 1024 * 1024

func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

// Provider is a chat-completion backend.
type Provider interface {
	// Chat sends a conversation and returns the model's reply.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string

	// Available reports whether the provider is configured for use.
	Available() bool
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	// Model overrides the provider's configured default when set.
	Model string `json:"model"`

	// SystemPrompt sets the assistant's behavior for this exchange.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages is the conversation so far, oldest first.
	Messages []Message `json:"messages"`

	// MaxTokens limits response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness.
	Temperature float64 `json:"temperature,omitempty"`
}

// Message is one conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the model's reply plus usage accounting.
type ChatResponse struct {
	Content          string        `json:"content"`
	Model            string        `json:"model"`
	TokensUsed       int           `json:"tokens_used,omitempty"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	Duration         time.Duration `json:"duration"`
	FinishReason     string        `json:"finish_reason,omitempty"`
}

// ProviderConfig configures a chat backend.
type ProviderConfig struct {
	// Name identifies the provider.
	Name string

	// Endpoint is the API base URL.
	Endpoint string

	// APIKey for authentication.
	APIKey string

	// Model is the default model.
	Model string

	// MaxTokens default for responses.
	MaxTokens int

	// Temperature default. The companion runs warm to keep its voice from
	// going flat.
	Temperature float64

	// Timeout for API calls.
	Timeout time.Duration
}

// DefaultGroqConfig returns the standard Groq tuning.
func DefaultGroqConfig() *ProviderConfig {
	return &ProviderConfig{
		Name:        "groq",
		Endpoint:    "https://api.groq.com/openai/v1",
		Model:       "llama-3.3-70b-versatile",
		MaxTokens:   2048,
		Temperature: 0.85,
		Timeout:     30 * time.Second,
	}
}
