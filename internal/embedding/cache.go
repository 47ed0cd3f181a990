package embedding

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache wraps an Embedder with SQLite-backed caching keyed by content hash,
// avoiding redundant embedding calls for prototypes, knowledge chunks, and
// repeated utterances.
type Cache struct {
	embedder Embedder
	db       *sql.DB
	modelID  string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache wrapping the given embedder. The db must contain
// the embedding_cache table (see store migrations). A nil db disables
// caching and passes every call through.
func NewCache(embedder Embedder, db *sql.DB) *Cache {
	modelID := "unknown"
	if embedder != nil {
		modelID = embedder.ModelName()
	}
	return &Cache{
		embedder: embedder,
		db:       db,
		modelID:  modelID,
	}
}

// Embed returns the cached embedding for text if present, generating and
// caching it otherwise.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := hashContent(text)

	if cached, found := c.lookup(ctx, hash); found {
		c.hits.Add(1)
		return cached, nil
	}
	c.misses.Add(1)

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(hash, vec)
	return vec, nil
}

// EmbedBatch embeds multiple texts, generating only the cache misses.
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	missingTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if cached, found := c.lookup(ctx, hashContent(text)); found {
			results[i] = cached
			c.hits.Add(1)
			continue
		}
		c.misses.Add(1)
		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}

	if len(missingTexts) > 0 {
		generated, err := c.embedder.EmbedBatch(ctx, missingTexts)
		if err != nil {
			return nil, err
		}
		for j, idx := range missing {
			if j < len(generated) {
				results[idx] = generated[j]
				c.put(hashContent(texts[idx]), generated[j])
			}
		}
	}
	return results, nil
}

// Dimension returns the embedding dimension of the wrapped embedder.
func (c *Cache) Dimension() int {
	return c.embedder.Dimension()
}

// ModelName returns the wrapped embedder's model name.
func (c *Cache) ModelName() string {
	return c.modelID
}

// Stats returns cache hit/miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) lookup(ctx context.Context, hash string) ([]float32, bool) {
	if c.db == nil {
		return nil, false
	}

	var blob []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT embedding FROM embedding_cache
		WHERE content_hash = ? AND model = ?
	`, hash, c.modelID).Scan(&blob)
	if err != nil {
		return nil, false
	}

	vec := BytesToVector(blob)
	if vec == nil {
		return nil, false
	}
	return vec, true
}

func (c *Cache) put(hash string, vec []float32) {
	if c.db == nil || len(vec) == 0 {
		return
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO embedding_cache (content_hash, model, embedding, created_at)
		VALUES (?, ?, ?, ?)
	`, hash, c.modelID, VectorToBytes(vec), time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Str("hash", hash[:8]).Msg("failed to cache embedding")
	}
}

func hashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
