// Package retrieval indexes a local knowledge base and surfaces the
// passages most similar to a query. The index is small enough to live in
// memory; vectors come from the embedding package.
package retrieval

import "strings"

const (
	// DefaultChunkSize is the chunk length in words.
	DefaultChunkSize = 400

	// DefaultChunkOverlap is how many words consecutive chunks share.
	DefaultChunkOverlap = 50

	// minChunkChars drops fragments too short to be useful context.
	minChunkChars = 50
)

// ChunkText splits text into overlapping word-window chunks. Fragments at
// or under minChunkChars after trimming are dropped.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	words := strings.Fields(text)
	var chunks []string
	step := size - overlap
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if len(strings.TrimSpace(chunk)) > minChunkChars {
			chunks = append(chunks, chunk)
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}
