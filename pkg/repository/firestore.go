// Package repository persists the chunk index in Firestore so it is built
// once and reused across processes.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cultra/pkg/interfaces"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultPrefix = "cultra"

	chunksCollection = "chunks"
	metaCollection   = "index"
	metaDocID        = "current"

	embeddingField = "embedding"
	distanceField  = "vector_distance"

	// maxNearest is the Firestore limit of FindNearest results
	maxNearest = 1000
)

// Firestore implements interfaces.ChunkIndex.
// Vector search requires a single-field vector index on <prefix>_chunks.embedding
// with the embedding dimensionality.
type Firestore struct {
	client *firestore.Client
	prefix string
}

var _ interfaces.ChunkIndex = (*Firestore)(nil)

type Option func(*Firestore)

// WithCollectionPrefix namespaces the collections, e.g. per environment
func WithCollectionPrefix(prefix string) Option {
	return func(r *Firestore) {
		r.prefix = prefix
	}
}

type chunkDoc struct {
	Index     int                `firestore:"index"`
	Text      string             `firestore:"text"`
	Offset    int                `firestore:"offset"`
	Embedding firestore.Vector32 `firestore:"embedding"`
}

type metaDoc struct {
	EmbeddingModel string    `firestore:"embedding_model"`
	ChunkSize      int       `firestore:"chunk_size"`
	ChunkOverlap   int       `firestore:"chunk_overlap"`
	SourceName     string    `firestore:"source_name"`
	SourceDigest   string    `firestore:"source_digest"`
	ChunkCount     int       `firestore:"chunk_count"`
	BuiltAt        time.Time `firestore:"built_at"`
}

// New connects to the Firestore database
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	r := &Firestore{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) chunks() *firestore.CollectionRef {
	return r.client.Collection(r.prefix + "_" + chunksCollection)
}

func (r *Firestore) meta() *firestore.DocumentRef {
	return r.client.Collection(r.prefix + "_" + metaCollection).Doc(metaDocID)
}

// PutChunks replaces all chunks and then writes meta. Meta is removed first so
// a half written index is never opened.
func (r *Firestore) PutChunks(ctx context.Context, meta *model.IndexMeta, chunks []*model.Chunk) error {
	if _, err := r.meta().Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return goerr.Wrap(err, "failed to delete index metadata")
	}

	if err := r.deleteChunks(ctx); err != nil {
		return err
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(chunks))
	for _, c := range chunks {
		job, err := bw.Set(r.chunks().Doc(chunkID(c.Index)), &chunkDoc{
			Index:     c.Index,
			Text:      c.Text,
			Offset:    c.Offset,
			Embedding: c.Embedding,
		})
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to enqueue chunk", goerr.V("index", c.Index))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to write chunk", goerr.V("index", chunks[i].Index))
		}
	}

	if _, err := r.meta().Set(ctx, &metaDoc{
		EmbeddingModel: meta.EmbeddingModel,
		ChunkSize:      meta.ChunkSize,
		ChunkOverlap:   meta.ChunkOverlap,
		SourceName:     meta.SourceName,
		SourceDigest:   meta.SourceDigest,
		ChunkCount:     len(chunks),
		BuiltAt:        meta.BuiltAt,
	}); err != nil {
		return goerr.Wrap(err, "failed to write index metadata")
	}

	return nil
}

func (r *Firestore) deleteChunks(ctx context.Context) error {
	iter := r.chunks().Select().Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to list chunks")
		}

		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to enqueue chunk deletion", goerr.V("id", doc.Ref.ID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to delete chunk")
		}
	}
	return nil
}

// GetIndexMeta returns nil when no index was built
func (r *Firestore) GetIndexMeta(ctx context.Context) (*model.IndexMeta, error) {
	snap, err := r.meta().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get index metadata")
	}

	var doc metaDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode index metadata")
	}

	return &model.IndexMeta{
		EmbeddingModel: doc.EmbeddingModel,
		ChunkSize:      doc.ChunkSize,
		ChunkOverlap:   doc.ChunkOverlap,
		SourceName:     doc.SourceName,
		SourceDigest:   doc.SourceDigest,
		ChunkCount:     doc.ChunkCount,
		BuiltAt:        doc.BuiltAt,
	}, nil
}

// SearchChunks runs a cosine FindNearest query. Equal distances are ordered by chunk index.
func (r *Firestore) SearchChunks(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if k > maxNearest {
		k = maxNearest
	}

	query := r.chunks().FindNearest(embeddingField,
		firestore.Vector32(embedding),
		k,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField},
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	type scored struct {
		chunk    *model.Chunk
		distance float64
	}
	var results []scored

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search chunks")
		}

		var c chunkDoc
		if err := doc.DataTo(&c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("id", doc.Ref.ID))
		}

		distance, _ := doc.Data()[distanceField].(float64)
		results = append(results, scored{
			chunk: &model.Chunk{
				Index:     c.Index,
				Text:      c.Text,
				Offset:    c.Offset,
				Embedding: c.Embedding,
			},
			distance: distance,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].chunk.Index < results[j].chunk.Index
	})

	out := make([]*model.Chunk, len(results))
	for i, s := range results {
		out[i] = s.chunk
	}
	return out, nil
}

// chunkID keeps document IDs in build order when listed
func chunkID(index int) string {
	return fmt.Sprintf("chunk_%06d", index)
}
