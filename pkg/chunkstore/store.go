// Package chunkstore holds the knowledge document as embedded, overlapping
// chunks and answers nearest-neighbor queries over them. A Store is built once
// at startup and is read-only afterwards.
package chunkstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/m-mizutani/cultra/pkg/interfaces"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 50
)

// searcher returns up to k chunks nearest to embedding, nearest first
type searcher interface {
	SearchChunks(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error)
}

// Store binds a chunk index to the embedding function it was built with
type Store struct {
	embedder interfaces.Embedder
	index    searcher
	meta     *model.IndexMeta
	chunks   []*model.Chunk
}

type buildOptions struct {
	size    int
	overlap int
}

type Option func(*buildOptions)

// WithChunkSize sets the maximum chunk length in characters
func WithChunkSize(size int) Option {
	return func(o *buildOptions) {
		o.size = size
	}
}

// WithChunkOverlap sets how many characters consecutive chunks share
func WithChunkOverlap(overlap int) Option {
	return func(o *buildOptions) {
		o.overlap = overlap
	}
}

// Build splits doc into chunks, embeds each of them with embedder and returns
// an in-memory store. The same input always produces the same store.
func Build(ctx context.Context, doc *model.Document, embedder interfaces.Embedder, opts ...Option) (*Store, error) {
	o := buildOptions{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.size <= 0 || o.overlap < 0 || o.overlap >= o.size {
		return nil, goerr.New("invalid chunk settings",
			goerr.V("size", o.size),
			goerr.V("overlap", o.overlap))
	}
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if doc == nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "no document given")
	}

	text := doc.Text()
	pieces := Split(text, o.size, o.overlap)
	if len(pieces) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyCorpus, "document has no text", goerr.V("source", doc.Name))
	}

	logger := logging.From(ctx)
	logger.Debug("embedding chunks", "source", doc.Name, "chunks", len(pieces))

	chunks := make([]*model.Chunk, 0, len(pieces))
	for i, p := range pieces {
		vec, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed chunk",
				goerr.V("index", i),
				goerr.V("source", doc.Name))
		}

		chunks = append(chunks, &model.Chunk{
			Index:     i,
			Text:      p.Text,
			Offset:    p.Offset,
			Embedding: vec,
		})
	}

	meta := &model.IndexMeta{
		EmbeddingModel: embedder.Name(),
		ChunkSize:      o.size,
		ChunkOverlap:   o.overlap,
		SourceName:     doc.Name,
		SourceDigest:   Digest(text),
		ChunkCount:     len(chunks),
		BuiltAt:        time.Now(),
	}

	return &Store{
		embedder: embedder,
		index:    newMemoryIndex(chunks),
		meta:     meta,
		chunks:   chunks,
	}, nil
}

// Open wraps a persisted index. The index must be non-empty and built with the same embedding function.
func Open(ctx context.Context, embedder interfaces.Embedder, index interfaces.ChunkIndex) (*Store, error) {
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}

	meta, err := index.GetIndexMeta(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get index metadata")
	}
	if meta == nil || meta.ChunkCount == 0 {
		return nil, goerr.Wrap(model.ErrEmptyCorpus, "persisted index has no chunks")
	}
	if meta.EmbeddingModel != embedder.Name() {
		return nil, goerr.Wrap(model.ErrEmbeddingMismatch, "index was built with another embedding function",
			goerr.V("index", meta.EmbeddingModel),
			goerr.V("embedder", embedder.Name()))
	}

	return &Store{
		embedder: embedder,
		index:    index,
		meta:     meta,
	}, nil
}

// Embedder returns the embedding function queries against this store must use
func (s *Store) Embedder() interfaces.Embedder {
	return s.embedder
}

// Meta describes how the store was built
func (s *Store) Meta() *model.IndexMeta {
	return s.meta
}

// Len returns the number of chunks
func (s *Store) Len() int {
	return s.meta.ChunkCount
}

// Chunks returns the chunks of an in-memory store in build order. It is nil for persisted stores.
func (s *Store) Chunks() []*model.Chunk {
	if s.chunks == nil {
		return nil
	}
	out := make([]*model.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// SimilaritySearch returns the k chunks nearest to embedding, nearest first
func (s *Store) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	chunks, err := s.index.SearchChunks(ctx, embedding, k)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search chunks", goerr.V("k", k))
	}
	return chunks, nil
}

// Digest returns a stable fingerprint of source text
func Digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
