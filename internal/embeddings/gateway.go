package embeddings

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// Gateway turns chunked documents into validated embedding batches.
type Gateway struct {
	provider Provider
	logger   *zap.Logger
	metrics  *Metrics
}

// NewGateway wraps a provider.
func NewGateway(provider Provider, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		provider: provider,
		logger:   logger,
		metrics:  NewMetrics(logger),
	}
}

// Provider returns the wrapped provider.
func (g *Gateway) Provider() Provider { return g.provider }

// EmbedDocument embeds every chunk of the document and assembles the
// batch. The declared dimension is taken from the first returned vector;
// a vector of any other width fails the whole batch. Each record carries
// the chunk's content and provenance metadata so the batch can be
// indexed without the source document.
func (g *Gateway) EmbedDocument(ctx context.Context, doc *pipeline.Document) (*pipeline.EmbeddingBatch, error) {
	start := time.Now()
	if doc == nil || len(doc.Chunks) == 0 {
		return nil, fmt.Errorf("%w: document has no chunks", pipeline.ErrEmptyInput)
	}

	texts := make([]string, len(doc.Chunks))
	for i, chunk := range doc.Chunks {
		texts[i] = chunk.Content
	}

	vectors, err := g.provider.EmbedDocuments(ctx, texts)
	g.metrics.RecordGeneration(ctx, g.provider.Model(), "embed_document", time.Since(start), len(texts), err)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(doc.Chunks) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", pipeline.ErrInvalidRecord, len(doc.Chunks), len(vectors))
	}

	dimension := len(vectors[0])
	createdAt := time.Now()
	timestamp := createdAt.Format(time.RFC3339)

	records := make([]pipeline.EmbeddingRecord, len(vectors))
	for i, vector := range vectors {
		if len(vector) != dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, batch dimension is %d",
				pipeline.ErrInvalidRecord, i+1, len(vector), dimension)
		}
		chunk := doc.Chunks[i]
		records[i] = pipeline.EmbeddingRecord{
			Embedding: vector,
			Metadata: map[string]any{
				"content":             chunk.Content,
				"document_name":       doc.Filename,
				"chunk_id":            chunk.Metadata.ChunkID,
				"total_chunks":        doc.TotalChunks,
				"page_number":         chunk.Metadata.PageNumber,
				"page_range":          chunk.Metadata.PageRange,
				"word_count":          chunk.Metadata.WordCount,
				"embedding_provider":  g.provider.Name(),
				"embedding_model":     g.provider.Model(),
				"embedding_timestamp": timestamp,
			},
		}
	}

	batch := &pipeline.EmbeddingBatch{
		Filename:          doc.Filename,
		EmbeddingProvider: g.provider.Name(),
		EmbeddingModel:    g.provider.Model(),
		VectorDimension:   dimension,
		CreatedAt:         createdAt,
		Embeddings:        records,
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	g.logger.Info("document embedded",
		zap.String("filename", doc.Filename),
		zap.String("provider", g.provider.Name()),
		zap.String("model", g.provider.Model()),
		zap.Int("vectors", len(records)),
		zap.Int("dimension", dimension),
		zap.Duration("duration", time.Since(start)),
	)
	return batch, nil
}

// EmbedQuery embeds one retrieval query.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := g.provider.EmbedQuery(ctx, text)
	g.metrics.RecordGeneration(ctx, g.provider.Model(), "embed_query", time.Since(start), 1, err)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// Close releases the underlying provider.
func (g *Gateway) Close() error {
	return g.provider.Close()
}
