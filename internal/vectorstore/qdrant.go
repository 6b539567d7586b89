package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

var qdrantTracer = otel.Tracer("github.com/fyrsmithlabs/ragpipe/internal/vectorstore")

const upsertBatchSize = 100

// QdrantStore indexes into a qdrant server over gRPC.
//
// Index modes map onto qdrant's knobs: hnsw builds an HNSW graph (m=16,
// ef_construct=500), ivf_sq8 enables int8 scalar quantization, and flat
// forces exact search at query time. ivf_flat has no direct equivalent
// and takes the server defaults.
type QdrantStore struct {
	client    *qdrant.Client
	logger    *zap.Logger
	indexMode string
}

// NewQdrantStore connects to qdrant.
func NewQdrantStore(cfg config.QdrantConfig, indexMode string, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(100 * 1024 * 1024)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantStore{client: client, logger: logger, indexMode: indexMode}, nil
}

// CreateAndPopulate creates the collection and upserts every record in
// batches.
func (s *QdrantStore) CreateAndPopulate(ctx context.Context, name string, batch *pipeline.EmbeddingBatch) (int, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.CreateAndPopulate")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("vectors", len(batch.Embeddings)),
		attribute.String("index_mode", s.indexMode),
	)
	start := time.Now()

	if err := batch.Validate(); err != nil {
		return 0, err
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return 0, spanErr(span, fmt.Errorf("checking collection %s: %w", name, classify(err)))
	}
	if exists {
		return 0, spanErr(span, fmt.Errorf("%w: collection %s already exists", pipeline.ErrFatal, name))
	}

	create := &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(batch.VectorDimension),
			Distance: qdrant.Distance_Cosine,
		}),
	}
	switch s.indexMode {
	case "hnsw":
		create.HnswConfig = &qdrant.HnswConfigDiff{
			M:           qdrant.PtrOf(uint64(16)),
			EfConstruct: qdrant.PtrOf(uint64(500)),
		}
	case "ivf_sq8":
		create.QuantizationConfig = &qdrant.QuantizationConfig{
			Quantization: &qdrant.QuantizationConfig_Scalar{
				Scalar: &qdrant.ScalarQuantization{Type: qdrant.QuantizationType_Int8},
			},
		}
	}
	if err := s.client.CreateCollection(ctx, create); err != nil {
		return 0, spanErr(span, fmt.Errorf("creating collection %s: %w", name, classify(err)))
	}

	points := make([]*qdrant.PointStruct, len(batch.Embeddings))
	for i, record := range batch.Embeddings {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(record.Embedding...),
			Payload: qdrant.NewValueMap(recordPayload(batch, record)),
		}
	}

	for offset := 0; offset < len(points); offset += upsertBatchSize {
		end := offset + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points[offset:end],
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return 0, spanErr(span, fmt.Errorf("upserting points %d-%d: %w", offset, end, classify(err)))
		}
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Info("collection indexed",
		zap.String("collection", name),
		zap.Int("vectors", len(points)),
		zap.String("index_mode", s.indexMode),
		zap.Duration("duration", time.Since(start)),
	)
	return len(points), nil
}

// ListCollections returns all collection names.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.ListCollections")
	defer span.End()

	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("listing collections: %w", classify(err)))
	}
	span.SetStatus(codes.Ok, "")
	return names, nil
}

// GetCollectionInfo describes a collection; a missing one reports
// Exists false with a nil error.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.GetCollectionInfo")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			span.SetStatus(codes.Ok, "")
			return &CollectionInfo{Name: name}, nil
		}
		return nil, spanErr(span, fmt.Errorf("describing collection %s: %w", name, classify(err)))
	}

	out := &CollectionInfo{Name: name, Exists: true}
	out.VectorCount = info.GetPointsCount()
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		out.Dimension = params.GetSize()
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// DeleteCollection removes the collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	if err := s.client.DeleteCollection(ctx, name); err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return spanErr(span, fmt.Errorf("%w: %s", ErrCollectionNotFound, name))
		}
		return spanErr(span, fmt.Errorf("deleting collection %s: %w", name, classify(err)))
	}
	span.SetStatus(codes.Ok, "")
	s.logger.Info("collection deleted", zap.String("collection", name))
	return nil
}

// SampleRecord scrolls one point and returns its payload.
func (s *QdrantStore) SampleRecord(ctx context.Context, name string) (map[string]any, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.SampleRecord")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: name,
		Limit:          qdrant.PtrOf(uint32(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("sampling collection %s: %w", name, classify(err)))
	}
	if len(points) == 0 {
		return nil, spanErr(span, fmt.Errorf("%w: %s is empty", ErrCollectionNotFound, name))
	}

	span.SetStatus(codes.Ok, "")
	return payloadToMap(points[0].GetPayload()), nil
}

// Query runs a cosine similarity search with the store's index mode
// shaping the search parameters.
func (s *QdrantStore) Query(ctx context.Context, name string, params QueryParams) ([]pipeline.SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("limit", params.Limit),
	)

	query := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(params.Vector...),
		Limit:          qdrant.PtrOf(uint64(params.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	switch s.indexMode {
	case "flat":
		query.Params = &qdrant.SearchParams{Exact: qdrant.PtrOf(true)}
	case "hnsw":
		query.Params = &qdrant.SearchParams{HnswEf: qdrant.PtrOf(uint64(128))}
	}
	if params.MinWordCount > 0 {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewRange("word_count", &qdrant.Range{
					Gte: qdrant.PtrOf(float64(params.MinWordCount)),
				}),
			},
		}
	}

	scored, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("querying collection %s: %w", name, classify(err)))
	}

	results := make([]pipeline.SearchResult, len(scored))
	for i, point := range scored {
		meta := payloadToMap(point.GetPayload())
		results[i] = pipeline.SearchResult{
			Text:     metaString(meta, "content"),
			Score:    point.GetScore(),
			Metadata: meta,
		}
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// Close tears down the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// payloadToMap converts a qdrant payload into plain Go values.
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = v.BoolValue
		}
	}
	return out
}

// classify maps gRPC failures onto the retryable and fatal sentinels.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded,
		grpccodes.Aborted, grpccodes.ResourceExhausted:
		return fmt.Errorf("%w: %v", pipeline.ErrTransient, err)
	case grpccodes.InvalidArgument, grpccodes.NotFound,
		grpccodes.PermissionDenied, grpccodes.Unauthenticated:
		return fmt.Errorf("%w: %v", pipeline.ErrFatal, err)
	default:
		return err
	}
}
