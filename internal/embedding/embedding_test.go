package embedding

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"mismatched length", []float32{1, 2}, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"empty", nil, nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	got := BytesToVector(VectorToBytes(vec))
	assert.Equal(t, vec, got)

	assert.Nil(t, BytesToVector(nil))
	assert.Nil(t, BytesToVector([]byte{1, 2, 3}), "length not divisible by 4")
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL})

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 3)
	assert.InDelta(t, 0.2, float64(vec[1]), 1e-6)
	assert.Equal(t, 3, e.Dimension(), "dimension adapts to the model's output")
}

func TestOllamaEmbedderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL})
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

// countingEmbedder counts upstream calls to verify cache behavior.
type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int    { return 2 }
func (c *countingEmbedder) ModelName() string { return "counting" }

func openCacheDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE embedding_cache (
		content_hash TEXT NOT NULL,
		model        TEXT NOT NULL,
		embedding    BLOB NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		PRIMARY KEY (content_hash, model)
	)`)
	require.NoError(t, err)
	return db
}

func TestCacheAvoidsRepeatCalls(t *testing.T) {
	upstream := &countingEmbedder{}
	cache := NewCache(upstream, openCacheDB(t))
	ctx := context.Background()

	first, err := cache.Embed(ctx, "hello world")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls, "second embed must come from the cache")

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheBatchMixedHits(t *testing.T) {
	upstream := &countingEmbedder{}
	cache := NewCache(upstream, openCacheDB(t))
	ctx := context.Background()

	_, err := cache.Embed(ctx, "cached")
	require.NoError(t, err)
	upstream.calls = 0

	out, err := cache.EmbedBatch(ctx, []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, upstream.calls, "only the miss reaches the upstream embedder")
}

func TestCacheNilDBPassthrough(t *testing.T) {
	upstream := &countingEmbedder{}
	cache := NewCache(upstream, nil)
	ctx := context.Background()

	_, err := cache.Embed(ctx, "text")
	require.NoError(t, err)
	_, err = cache.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}
