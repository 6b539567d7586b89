// Package vectorstore indexes embedding batches and serves similarity
// queries.
//
// Two providers are supported: qdrant (remote, gRPC) and chromem
// (embedded, file-backed). Both store the same payload schema so a
// search engine can read provider and model provenance from any stored
// record without knowing which backend holds it. Index tuning modes
// (flat, ivf_flat, ivf_sq8, hnsw) shape the qdrant collection; chromem
// always searches exhaustively and accepts any mode.
package vectorstore

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// ErrCollectionNotFound indicates an operation against a collection that
// does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// CollectionInfo describes a stored collection. A zero value means the
// collection does not exist.
type CollectionInfo struct {
	Name        string `json:"name"`
	VectorCount uint64 `json:"vector_count"`
	Dimension   uint64 `json:"dimension"`
	Exists      bool   `json:"exists"`
}

// QueryParams shapes one similarity query.
type QueryParams struct {
	// Vector is the query embedding.
	Vector []float32

	// Limit caps the number of returned results.
	Limit int

	// MinWordCount filters out records whose stored word_count is below
	// the threshold. Zero disables the filter.
	MinWordCount int
}

// Store is the provider-neutral surface of a vector index.
type Store interface {
	// CreateAndPopulate creates the named collection sized for the
	// batch's dimension and inserts every record. It returns the number
	// of vectors indexed.
	CreateAndPopulate(ctx context.Context, name string, batch *pipeline.EmbeddingBatch) (int, error)

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollectionInfo describes a collection. A missing collection is
	// not an error: the returned info has Exists false.
	GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// DeleteCollection removes a collection and its vectors.
	DeleteCollection(ctx context.Context, name string) error

	// SampleRecord returns the payload of one stored record, used to
	// discover which embedding provider and model built the collection.
	// An empty collection returns ErrCollectionNotFound.
	SampleRecord(ctx context.Context, name string) (map[string]any, error)

	// Query runs a cosine similarity search.
	Query(ctx context.Context, name string, params QueryParams) ([]pipeline.SearchResult, error)

	// Close releases provider resources.
	Close() error
}
