package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultModel is the default local embedding model.
	DefaultModel = "nomic-embed-text"

	// DefaultHost is the default Ollama API endpoint.
	DefaultHost = "http://127.0.0.1:11434"

	// DefaultDimension is the vector size of nomic-embed-text. Corrected on
	// the first successful embed if the model differs.
	DefaultDimension = 768
)

// OllamaEmbedder generates embeddings through a local Ollama server.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client

	mu        sync.Mutex
	dimension int
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host    string        // Ollama API host (default: http://127.0.0.1:11434)
	Model   string        // Embedding model (default: nomic-embed-text)
	Timeout time.Duration // HTTP request timeout (default: 30s)
}

// NewOllamaEmbedder creates an Ollama-backed embedder. A nil config uses
// defaults.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	if cfg == nil {
		cfg = &OllamaConfig{}
	}

	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OllamaEmbedder{
		host:      host,
		model:     model,
		client:    &http.Client{Timeout: timeout},
		dimension: DefaultDimension,
	}
}

// Embed generates a vector embedding for the given text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  e.model,
		"prompt": text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.host+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vec := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		vec[i] = float32(v)
	}

	e.mu.Lock()
	if len(vec) > 0 && e.dimension != len(vec) {
		log.Debug().Int("dimension", len(vec)).Str("model", e.model).Msg("embedding dimension updated")
		e.dimension = len(vec)
	}
	e.mu.Unlock()

	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts sequentially; the
// Ollama embeddings endpoint takes one prompt per call.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// Dimension returns the embedding dimension.
func (e *OllamaEmbedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// ModelName returns the name of the embedding model.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}
