// Package vectordb provides vector index adapters.
// The in-memory index is the default: an index is built once per ingested
// document or URL and only ever queried after that, so brute-force cosine
// over a few hundred chunks is plenty.
package vectordb

import (
	"context"
	"math"
	"sort"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

// MemoryIndex is an immutable-after-build in-memory vector index.
// Safe for concurrent queries; there is no mutation after construction.
type MemoryIndex struct {
	chunks []entities.Chunk
}

// MemoryBuilder builds MemoryIndex instances. Implements ports.IndexBuilder.
type MemoryBuilder struct{}

// NewMemoryBuilder creates a builder for in-memory indices.
func NewMemoryBuilder() *MemoryBuilder {
	return &MemoryBuilder{}
}

// Build copies the embedded chunks into a new index. One-shot: the
// returned index never changes.
func (b *MemoryBuilder) Build(_ context.Context, chunks []entities.Chunk) (ports.VectorIndex, error) {
	owned := make([]entities.Chunk, len(chunks))
	copy(owned, chunks)
	return &MemoryIndex{chunks: owned}, nil
}

// Query returns the k most similar chunks sorted by descending cosine
// similarity. Ties keep original chunk order: chunks are held in ingestion
// order and the sort is stable.
func (idx *MemoryIndex) Query(_ context.Context, embedding []float32, k int) ([]entities.QueryResult, error) {
	results := make([]entities.QueryResult, 0, len(idx.chunks))
	for _, chunk := range idx.chunks {
		results = append(results, entities.QueryResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (idx *MemoryIndex) Len() int {
	return len(idx.chunks)
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
