package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

var bedrockDimensions = map[string]int{
	"amazon.titan-embed-text-v1":   1536,
	"amazon.titan-embed-text-v2:0": 1024,
}

// bedrockProvider embeds via Amazon Titan text embedding models. Titan
// takes one input per invocation, so document batches invoke serially.
type bedrockProvider struct {
	client    *bedrockruntime.Client
	modelID   string
	dimension int
}

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

func newBedrockProvider(ctx context.Context, cfg config.EmbeddingConfig) (*bedrockProvider, error) {
	modelID := cfg.Model
	if modelID == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	dimension, ok := bedrockDimensions[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: bedrock embedding model %q", pipeline.ErrUnsupportedMethod, modelID)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aws config: %v", pipeline.ErrFatal, err)
	}

	return &bedrockProvider{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   modelID,
		dimension: dimension,
	}, nil
}

func (p *bedrockProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", pipeline.ErrEmptyInput)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := p.invoke(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (p *bedrockProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", pipeline.ErrEmptyInput)
	}
	return p.invoke(ctx, text)
}

func (p *bedrockProvider) invoke(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding titan request: %v", pipeline.ErrFatal, err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classifyBedrockError(err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding titan response: %v", pipeline.ErrInvalidRecord, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: titan returned no embedding", pipeline.ErrInvalidRecord)
	}
	return resp.Embedding, nil
}

func (p *bedrockProvider) Name() string   { return "bedrock" }
func (p *bedrockProvider) Model() string  { return p.modelID }
func (p *bedrockProvider) Dimension() int { return p.dimension }
func (p *bedrockProvider) Close() error   { return nil }

func classifyBedrockError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailableException",
			"InternalServerException", "ModelTimeoutException",
			"ModelNotReadyException":
			return fmt.Errorf("%w: bedrock: %v", pipeline.ErrTransient, err)
		default:
			return fmt.Errorf("%w: bedrock: %v", pipeline.ErrFatal, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: bedrock: %v", pipeline.ErrTransient, err)
}
