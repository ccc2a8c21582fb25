package interpret

import (
	"context"

	"github.com/m-mizutani/cultra/pkg/chunkstore"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Retriever finds the chunks most relevant to a query
type Retriever struct {
	store *chunkstore.Store
	topK  int
}

func NewRetriever(store *chunkstore.Store, topK int) *Retriever {
	return &Retriever{store: store, topK: topK}
}

// Retrieve embeds the query with the store's own embedder and returns up to
// topK chunks, nearest first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*model.Chunk, error) {
	vec, err := r.store.Embedder().Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	chunks, err := r.store.SimilaritySearch(ctx, vec, r.topK)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
