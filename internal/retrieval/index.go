package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/normanking/attrangi/internal/embedding"
)

// DefaultTopK is how many passages a query returns.
const DefaultTopK = 3

// minScore is the cosine floor below which a passage is considered
// unrelated to the query and never returned.
const minScore = 0.25

// passage is one indexed chunk with its source document.
type passage struct {
	text   string
	source string
	vector []float32
}

// Index is an in-memory vector index over the knowledge base.
type Index struct {
	embedder embedding.Embedder
	topK     int

	mu       sync.RWMutex
	passages []passage

	log zerolog.Logger
}

// NewIndex creates an empty index. A non-positive topK uses DefaultTopK.
func NewIndex(embedder embedding.Embedder, topK int) *Index {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Index{
		embedder: embedder,
		topK:     topK,
		log:      log.With().Str("component", "retrieval").Logger(),
	}
}

// AddDocument chunks and embeds one document into the index.
func (ix *Index) AddDocument(ctx context.Context, source, text string) error {
	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", source, err)
	}

	ix.mu.Lock()
	for i, chunk := range chunks {
		ix.passages = append(ix.passages, passage{text: chunk, source: source, vector: vecs[i]})
	}
	ix.mu.Unlock()

	ix.log.Debug().Str("source", source).Int("chunks", len(chunks)).Msg("document indexed")
	return nil
}

// LoadDirectory indexes every .txt and .md file under dir. A missing
// directory is not an error: the companion runs fine without background
// material.
func (ix *Index) LoadDirectory(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			ix.log.Info().Str("dir", dir).Msg("no knowledge base directory, retrieval disabled")
			return nil
		}
		return fmt.Errorf("read knowledge dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if err := ix.AddDocument(ctx, entry.Name(), string(data)); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.passages)
}

// Retrieve returns the texts of the passages most similar to the query,
// best first. An empty index returns nil without touching the embedder.
func (ix *Index) Retrieve(ctx context.Context, query string) ([]string, error) {
	if ix.Len() == 0 {
		return nil, nil
	}

	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		text  string
		score float64
	}

	ix.mu.RLock()
	results := make([]scored, 0, len(ix.passages))
	for _, p := range ix.passages {
		score := embedding.CosineSimilarity(qvec, p.vector)
		if score < minScore {
			continue
		}
		results = append(results, scored{text: p.text, score: score})
	}
	ix.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })

	n := ix.topK
	if n > len(results) {
		n = len(results)
	}
	out := make([]string, 0, n)
	for _, r := range results[:n] {
		out = append(out, r.text)
	}
	return out, nil
}
