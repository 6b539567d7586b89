package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

type openAIProvider struct {
	client    openai.Client
	modelName string
	dimension int
}

func newOpenAIProvider(cfg config.EmbeddingConfig) (*openAIProvider, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: openai api key is not configured", pipeline.ErrFatal)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	dimension, ok := openAIDimensions[modelName]
	if !ok {
		return nil, fmt.Errorf("%w: openai embedding model %q", pipeline.ErrUnsupportedMethod, modelName)
	}

	return &openAIProvider{
		client:    openai.NewClient(option.WithAPIKey(cfg.APIKey.Value())),
		modelName: modelName,
		dimension: dimension,
	}, nil
}

func (p *openAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", pipeline.ErrEmptyInput)
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.modelName),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", pipeline.ErrInvalidRecord, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = toFloat32(item.Embedding)
	}
	return vectors, nil
}

func (p *openAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", pipeline.ErrEmptyInput)
	}
	vectors, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *openAIProvider) Name() string   { return "openai" }
func (p *openAIProvider) Model() string  { return p.modelName }
func (p *openAIProvider) Dimension() int { return p.dimension }
func (p *openAIProvider) Close() error   { return nil }

// classifyOpenAIError maps API failures onto the pipeline's retryable
// and fatal sentinels. Rate limits and server errors are worth retrying;
// auth and request errors are not.
func classifyOpenAIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: openai: %v", pipeline.ErrTransient, err)
		default:
			return fmt.Errorf("%w: openai: %v", pipeline.ErrFatal, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// Connection-level failures have no status code; treat as transient.
	return fmt.Errorf("%w: openai: %v", pipeline.ErrTransient, err)
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
