package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// ChromemStore indexes into an embedded, file-backed chromem database.
// Search is always exhaustive, so index modes are accepted and ignored.
// Point IDs are deterministic ("<collection>_<chunk_id>"), which makes
// sampling cheap and re-indexing idempotent per collection.
type ChromemStore struct {
	db     *chromem.DB
	logger *zap.Logger
}

// NewChromemStore opens or creates the database at the configured path.
func NewChromemStore(cfg config.ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db at %s: %w", cfg.Path, err)
	}
	return &ChromemStore{db: db, logger: logger}, nil
}

// noEmbed satisfies chromem's embedding hook. All vectors here are
// precomputed, so being called means a bug upstream.
func noEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: collection has no embedding function, vectors must be precomputed", pipeline.ErrFatal)
}

// CreateAndPopulate stores every record of the batch under deterministic
// IDs. A collection's dimension is fixed at creation, so an existing
// collection is refused rather than appended to.
func (s *ChromemStore) CreateAndPopulate(ctx context.Context, name string, batch *pipeline.EmbeddingBatch) (int, error) {
	start := time.Now()
	if err := batch.Validate(); err != nil {
		return 0, err
	}

	if s.db.GetCollection(name, noEmbed) != nil {
		return 0, fmt.Errorf("%w: collection %s already exists", pipeline.ErrFatal, name)
	}
	collection, err := s.db.CreateCollection(name, nil, noEmbed)
	if err != nil {
		return 0, fmt.Errorf("creating collection %s: %w", name, err)
	}

	docs := make([]chromem.Document, len(batch.Embeddings))
	for i, record := range batch.Embeddings {
		payload := recordPayload(batch, record)
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s_%d", name, metaInt(record.Metadata, "chunk_id")),
			Content:   metaString(payload, "content"),
			Embedding: record.Embedding,
			Metadata:  stringifyPayload(payload),
		}
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("adding documents to %s: %w", name, err)
	}

	s.logger.Info("collection indexed",
		zap.String("collection", name),
		zap.Int("vectors", len(docs)),
		zap.Duration("duration", time.Since(start)),
	)
	return len(docs), nil
}

// ListCollections returns all collection names.
func (s *ChromemStore) ListCollections(ctx context.Context) ([]string, error) {
	collections := s.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	return names, nil
}

// GetCollectionInfo describes a collection; a missing one reports
// Exists false with a nil error.
func (s *ChromemStore) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	collection := s.db.GetCollection(name, noEmbed)
	if collection == nil {
		return &CollectionInfo{Name: name}, nil
	}
	info := &CollectionInfo{
		Name:        name,
		VectorCount: uint64(collection.Count()),
		Exists:      true,
	}
	if doc, err := collection.GetByID(ctx, fmt.Sprintf("%s_1", name)); err == nil {
		info.Dimension = uint64(len(doc.Embedding))
	}
	return info, nil
}

// DeleteCollection removes the collection.
func (s *ChromemStore) DeleteCollection(ctx context.Context, name string) error {
	if s.db.GetCollection(name, noEmbed) == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	s.logger.Info("collection deleted", zap.String("collection", name))
	return nil
}

// SampleRecord returns the payload of the first chunk.
func (s *ChromemStore) SampleRecord(ctx context.Context, name string) (map[string]any, error) {
	collection := s.db.GetCollection(name, noEmbed)
	if collection == nil || collection.Count() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	doc, err := collection.GetByID(ctx, fmt.Sprintf("%s_1", name))
	if err != nil {
		return nil, fmt.Errorf("sampling collection %s: %w", name, err)
	}
	return destringifyPayload(doc.Metadata), nil
}

// Query searches exhaustively. The word count filter runs client side
// because chromem's where clause only matches exact values.
func (s *ChromemStore) Query(ctx context.Context, name string, params QueryParams) ([]pipeline.SearchResult, error) {
	collection := s.db.GetCollection(name, noEmbed)
	if collection == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	count := collection.Count()
	if count == 0 {
		return []pipeline.SearchResult{}, nil
	}
	n := params.Limit
	if params.MinWordCount > 0 {
		// Over-fetch so post-filtering can still fill the limit.
		n = params.Limit * 4
	}
	if n > count {
		n = count
	}

	found, err := collection.QueryEmbedding(ctx, params.Vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	results := make([]pipeline.SearchResult, 0, len(found))
	for _, r := range found {
		meta := destringifyPayload(r.Metadata)
		if params.MinWordCount > 0 && metaInt(meta, "word_count") < int64(params.MinWordCount) {
			continue
		}
		results = append(results, pipeline.SearchResult{
			Text:     r.Content,
			Score:    r.Similarity,
			Metadata: meta,
		})
		if len(results) == params.Limit {
			break
		}
	}
	return results, nil
}

// Close is a no-op; chromem persists on write.
func (s *ChromemStore) Close() error { return nil }

// stringifyPayload converts the payload to chromem's string-only
// metadata.
func stringifyPayload(payload map[string]any) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// destringifyPayload restores the numeric payload fields chromem stored
// as strings.
func destringifyPayload(meta map[string]string) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		switch k {
		case "chunk_id", "total_chunks", "word_count":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				out[k] = n
				continue
			}
			out[k] = v
		default:
			out[k] = v
		}
	}
	return out
}
