// Package embeddings turns chunked documents into vectors.
//
// Three providers are supported: fastembed (local ONNX models), openai,
// and bedrock (Amazon Titan). The Gateway wraps a provider with batch
// assembly, dimension checking, and metrics. Every vector in a batch
// carries the full metadata set the vector index stores, so a batch file
// is self-describing: a reader never needs the source document to know
// which provider and model produced it.
package embeddings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// Provider generates embeddings for documents and queries.
type Provider interface {
	// EmbedDocuments embeds a batch of passage texts in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single retrieval query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Name is the provider identifier recorded in batches ("fastembed",
	// "openai", "bedrock").
	Name() string
	// Model is the model identifier recorded in batches.
	Model() string
	// Dimension is the vector width the model produces.
	Dimension() int
	// Close releases provider resources.
	Close() error
}

// NewProvider creates the provider named by the configuration.
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "fastembed", "":
		return newFastEmbedProvider(cfg)
	case "openai":
		return newOpenAIProvider(cfg)
	case "bedrock":
		return newBedrockProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", pipeline.ErrUnsupportedMethod, cfg.Provider)
	}
}
