package chunkstore

import (
	"context"
	"math"
	"sort"

	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// memoryIndex is an exhaustive cosine-similarity index. It is never written after construction.
type memoryIndex struct {
	chunks []*model.Chunk
}

func newMemoryIndex(chunks []*model.Chunk) *memoryIndex {
	return &memoryIndex{chunks: chunks}
}

// SearchChunks ranks every chunk by cosine similarity. Equal scores keep build order.
func (m *memoryIndex) SearchChunks(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error) {
	type scored struct {
		chunk *model.Chunk
		score float64
	}

	results := make([]scored, 0, len(m.chunks))
	for _, c := range m.chunks {
		if len(c.Embedding) != len(embedding) {
			return nil, goerr.Wrap(model.ErrEmbeddingMismatch, "vector dimension mismatch",
				goerr.V("chunk", len(c.Embedding)),
				goerr.V("query", len(embedding)))
		}
		results = append(results, scored{chunk: c, score: cosineSimilarity(embedding, c.Embedding)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunk.Index < results[j].chunk.Index
	})

	if len(results) > k {
		results = results[:k]
	}

	out := make([]*model.Chunk, len(results))
	for i, r := range results {
		out[i] = r.chunk
	}
	return out, nil
}

// cosineSimilarity returns 0 when either vector has zero norm
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
