package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/embeddings"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
	"github.com/fyrsmithlabs/ragpipe/internal/vectorstore"
)

type stubStore struct {
	sample      map[string]any
	sampleErr   error
	results     []pipeline.SearchResult
	queryErr    error
	gotParams   vectorstore.QueryParams
	gotCollName string
}

func (s *stubStore) CreateAndPopulate(ctx context.Context, name string, batch *pipeline.EmbeddingBatch) (int, error) {
	return 0, nil
}
func (s *stubStore) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (s *stubStore) GetCollectionInfo(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{}, nil
}
func (s *stubStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (s *stubStore) SampleRecord(ctx context.Context, name string) (map[string]any, error) {
	return s.sample, s.sampleErr
}
func (s *stubStore) Query(ctx context.Context, name string, params vectorstore.QueryParams) ([]pipeline.SearchResult, error) {
	s.gotCollName = name
	s.gotParams = params
	return s.results, s.queryErr
}
func (s *stubStore) Close() error { return nil }

type stubEmbedder struct {
	name  string
	model string
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}
func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (s *stubEmbedder) Name() string   { return s.name }
func (s *stubEmbedder) Model() string  { return s.model }
func (s *stubEmbedder) Dimension() int { return 3 }
func (s *stubEmbedder) Close() error   { return nil }

type recordingSink struct {
	saved *pipeline.ResultSet
	err   error
}

func (r *recordingSink) SaveResultSet(set *pipeline.ResultSet) (string, error) {
	r.saved = set
	return "results.json", r.err
}

func defaultSearchConfig() config.SearchConfig {
	return config.SearchConfig{TopK: 3, ScoreThreshold: 0.7, MinWordCount: 20, SaveResults: true}
}

func newTestEngine(store *stubStore, sink ResultSink) *Engine {
	e := New(store, defaultSearchConfig(), config.EmbeddingConfig{}, sink, zap.NewNop())
	e.newProvider = func(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error) {
		return &stubEmbedder{name: cfg.Provider, model: cfg.Model}, nil
	}
	return e
}

func storedSample() map[string]any {
	return map[string]any{
		"embedding_provider": "fastembed",
		"embedding_model":    "BAAI/bge-small-en-v1.5",
	}
}

func TestSearch(t *testing.T) {
	store := &stubStore{
		sample: storedSample(),
		results: []pipeline.SearchResult{
			{Text: "high", Score: 0.92, Metadata: map[string]any{"chunk_id": int64(1)}},
			{Text: "mid", Score: 0.75, Metadata: map[string]any{"chunk_id": int64(2)}},
			{Text: "low", Score: 0.4, Metadata: map[string]any{"chunk_id": int64(3)}},
		},
	}
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	set, err := engine.Search(context.Background(), Request{CollectionID: "reports", Query: "revenue"})
	require.NoError(t, err)

	// Threshold 0.7 drops the 0.4 result.
	require.Len(t, set.Results, 2)
	assert.Equal(t, "high", set.Results[0].Text)
	assert.Equal(t, "mid", set.Results[1].Text)

	// Defaults flowed into the store query.
	assert.Equal(t, "reports", store.gotCollName)
	assert.Equal(t, 3, store.gotParams.Limit)
	assert.Equal(t, 20, store.gotParams.MinWordCount)
	assert.Equal(t, []float32{1, 0, 0}, store.gotParams.Vector)

	// Results were persisted.
	require.NotNil(t, sink.saved)
	assert.Equal(t, "revenue", sink.saved.Query)
	assert.Equal(t, "results.json", set.SavedPath)
	assert.Empty(t, set.SaveWarning)
}

func TestSearch_ThresholdAboveOne(t *testing.T) {
	store := &stubStore{
		sample: storedSample(),
		results: []pipeline.SearchResult{
			{Text: "best possible", Score: 1.0},
		},
	}
	engine := newTestEngine(store, nil)

	set, err := engine.Search(context.Background(), Request{
		CollectionID: "reports",
		Query:        "anything",
		Threshold:    1.1,
	})
	require.NoError(t, err)
	assert.Empty(t, set.Results, "no cosine score can reach 1.1")
}

func TestSearch_NegativeThreshold(t *testing.T) {
	store := &stubStore{
		sample: storedSample(),
		results: []pipeline.SearchResult{
			{Text: "similar", Score: 0.6},
			{Text: "unrelated", Score: -0.2},
		},
	}
	engine := newTestEngine(store, nil)

	// Cosine scores span [-1, 1]; a floor of -1 keeps everything the
	// store returns instead of falling back to the configured 0.7.
	set, err := engine.Search(context.Background(), Request{
		CollectionID: "reports",
		Query:        "anything",
		Threshold:    -1,
	})
	require.NoError(t, err)
	require.Len(t, set.Results, 2)
	assert.Equal(t, "unrelated", set.Results[1].Text)
}

func TestSearch_UsesStoredProvenance(t *testing.T) {
	store := &stubStore{
		sample: map[string]any{
			"embedding_provider": "openai",
			"embedding_model":    "text-embedding-3-small",
		},
	}
	engine := newTestEngine(store, nil)

	var gotCfg config.EmbeddingConfig
	engine.newProvider = func(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error) {
		gotCfg = cfg
		return &stubEmbedder{name: cfg.Provider, model: cfg.Model}, nil
	}

	_, err := engine.Search(context.Background(), Request{CollectionID: "c", Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "openai", gotCfg.Provider)
	assert.Equal(t, "text-embedding-3-small", gotCfg.Model)
}

func TestSearch_EmptyCollection(t *testing.T) {
	store := &stubStore{
		sampleErr: fmt.Errorf("%w: c is empty", vectorstore.ErrCollectionNotFound),
	}
	engine := newTestEngine(store, nil)

	_, err := engine.Search(context.Background(), Request{CollectionID: "c", Query: "q"})
	require.ErrorIs(t, err, pipeline.ErrFatal)
}

func TestSearch_MissingProvenance(t *testing.T) {
	store := &stubStore{sample: map[string]any{"content": "text but no provider"}}
	engine := newTestEngine(store, nil)

	_, err := engine.Search(context.Background(), Request{CollectionID: "c", Query: "q"})
	require.ErrorIs(t, err, pipeline.ErrInvalidRecord)
}

func TestSearch_EmptyQuery(t *testing.T) {
	engine := newTestEngine(&stubStore{}, nil)

	_, err := engine.Search(context.Background(), Request{CollectionID: "c"})
	require.ErrorIs(t, err, pipeline.ErrEmptyInput)
}

func TestSearch_SinkFailureIsSoft(t *testing.T) {
	store := &stubStore{
		sample:  storedSample(),
		results: []pipeline.SearchResult{{Text: "hit", Score: 0.9}},
	}
	sink := &recordingSink{err: errors.New("disk full")}
	engine := newTestEngine(store, sink)

	set, err := engine.Search(context.Background(), Request{CollectionID: "c", Query: "q"})
	require.NoError(t, err, "persistence failure must not fail the search")
	assert.Len(t, set.Results, 1)
	assert.Contains(t, set.SaveWarning, "disk full")
	assert.Empty(t, set.SavedPath)
}

func TestSearch_DisableWordCountFloor(t *testing.T) {
	store := &stubStore{sample: storedSample()}
	engine := newTestEngine(store, nil)

	_, err := engine.Search(context.Background(), Request{
		CollectionID: "c",
		Query:        "q",
		MinWordCount: -1,
	})
	require.NoError(t, err)
	assert.Zero(t, store.gotParams.MinWordCount)
}
