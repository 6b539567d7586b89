// Package search answers queries against indexed collections.
//
// A collection remembers which embedding provider and model built it:
// the engine samples one stored record, spins up exactly that provider
// for the query, and never mixes embedding spaces. Results are filtered
// twice: the store applies the word count floor server side, and the
// engine applies the score threshold client side.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/embeddings"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
	"github.com/fyrsmithlabs/ragpipe/internal/vectorstore"
)

// ProviderFactory builds an embedding provider for a query. Injected so
// tests can avoid model downloads.
type ProviderFactory func(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error)

// ResultSink persists result sets. Saving is best effort; a sink
// failure never fails the search.
type ResultSink interface {
	SaveResultSet(set *pipeline.ResultSet) (string, error)
}

// Request is one search invocation. Zero values fall back to the
// engine's configured defaults.
type Request struct {
	CollectionID string
	Query        string
	TopK         int
	Threshold    float32
	MinWordCount int
}

// Response is the outcome of one search. SaveWarning carries a result
// persistence failure back to the caller; the search itself succeeded.
type Response struct {
	*pipeline.ResultSet
	SavedPath   string `json:"saved_path,omitempty"`
	SaveWarning string `json:"save_warning,omitempty"`
}

// Engine runs the retrieval flow against a vector store.
type Engine struct {
	store       vectorstore.Store
	cfg         config.SearchConfig
	embedCfg    config.EmbeddingConfig
	newProvider ProviderFactory
	sink        ResultSink
	logger      *zap.Logger
}

// New creates a search engine. sink may be nil to disable persistence.
func New(store vectorstore.Store, cfg config.SearchConfig, embedCfg config.EmbeddingConfig, sink ResultSink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		cfg:      cfg,
		embedCfg: embedCfg,
		newProvider: func(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error) {
			return embeddings.NewProvider(ctx, cfg, logger)
		},
		sink:   sink,
		logger: logger,
	}
}

// Search embeds the query with the collection's own model and returns
// results at or above the score threshold.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is empty", pipeline.ErrEmptyInput)
	}
	e.applyDefaults(&req)

	sample, err := e.store.SampleRecord(ctx, req.CollectionID)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: collection %s has no records: %v", pipeline.ErrFatal, req.CollectionID, err)
		}
		return nil, err
	}

	providerName, _ := sample["embedding_provider"].(string)
	modelName, _ := sample["embedding_model"].(string)
	if providerName == "" || modelName == "" {
		return nil, fmt.Errorf("%w: collection %s records carry no embedding provenance", pipeline.ErrInvalidRecord, req.CollectionID)
	}

	embedCfg := e.embedCfg
	embedCfg.Provider = providerName
	embedCfg.Model = modelName
	provider, err := e.newProvider(ctx, embedCfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider for query: %w", providerName, err)
	}
	defer provider.Close()

	vector, err := provider.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	found, err := e.store.Query(ctx, req.CollectionID, vectorstore.QueryParams{
		Vector:       vector,
		Limit:        req.TopK,
		MinWordCount: req.MinWordCount,
	})
	if err != nil {
		return nil, err
	}

	results := make([]pipeline.SearchResult, 0, len(found))
	for _, r := range found {
		if r.Score < req.Threshold {
			continue
		}
		results = append(results, r)
	}

	set := &pipeline.ResultSet{
		Query:        req.Query,
		CollectionID: req.CollectionID,
		Timestamp:    time.Now(),
		Results:      results,
	}
	resp := &Response{ResultSet: set}

	if e.sink != nil && e.cfg.SaveResults {
		if path, err := e.sink.SaveResultSet(set); err != nil {
			resp.SaveWarning = fmt.Sprintf("saving search results failed: %v", err)
			e.logger.Warn("saving search results failed",
				zap.String("collection", req.CollectionID),
				zap.Error(err),
			)
		} else {
			resp.SavedPath = path
			e.logger.Debug("search results saved", zap.String("path", path))
		}
	}

	e.logger.Info("search completed",
		zap.String("collection", req.CollectionID),
		zap.String("provider", providerName),
		zap.String("model", modelName),
		zap.Int("candidates", len(found)),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (e *Engine) applyDefaults(req *Request) {
	if req.TopK <= 0 {
		req.TopK = e.cfg.TopK
	}
	// Cosine scores span [-1, 1], so a negative floor is a legal
	// request; only exactly zero takes the configured default.
	if req.Threshold == 0 {
		req.Threshold = float32(e.cfg.ScoreThreshold)
	}
	// Negative disables the word count floor; zero takes the default.
	switch {
	case req.MinWordCount < 0:
		req.MinWordCount = 0
	case req.MinWordCount == 0:
		req.MinWordCount = e.cfg.MinWordCount
	}
}
