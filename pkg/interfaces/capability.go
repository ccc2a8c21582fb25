package interfaces

import (
	"context"

	"github.com/m-mizutani/cultra/pkg/model"
)

// Embedder converts text into a vector. The same instance must be used to
// build a chunk store and to embed queries against it.
type Embedder interface {
	// Embed returns the embedding of text. Identical input yields identical output.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the embedding function (model and dimensionality)
	Name() string
}

// Completer is a single-shot language model completion
type Completer interface {
	// Complete returns the model output for prompt. An empty string is a valid result.
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int32) (string, error)
}

// ChunkIndex is a persisted nearest-neighbor index of chunks
type ChunkIndex interface {
	// PutChunks replaces the index content with chunks and records meta
	PutChunks(ctx context.Context, meta *model.IndexMeta, chunks []*model.Chunk) error

	// GetIndexMeta returns the metadata of the current index, or nil if none was built
	GetIndexMeta(ctx context.Context) (*model.IndexMeta, error)

	// SearchChunks returns up to k chunks nearest to embedding, nearest first
	SearchChunks(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error)
}
