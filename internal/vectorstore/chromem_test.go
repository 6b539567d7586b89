package vectorstore

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(config.ChromemConfig{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func unit(values ...float32) []float32 {
	var norm float64
	for _, v := range values {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func testBatch() *pipeline.EmbeddingBatch {
	record := func(id, words int, content string, vec []float32) pipeline.EmbeddingRecord {
		return pipeline.EmbeddingRecord{
			Embedding: vec,
			Metadata: map[string]any{
				"content":             content,
				"chunk_id":            id,
				"total_chunks":        3,
				"word_count":          words,
				"page_number":         1,
				"page_range":          "1",
				"embedding_timestamp": "2026-03-14T09:26:53Z",
			},
		}
	}
	return &pipeline.EmbeddingBatch{
		Filename:          "report.pdf",
		EmbeddingProvider: "fastembed",
		EmbeddingModel:    "BAAI/bge-small-en-v1.5",
		VectorDimension:   3,
		CreatedAt:         time.Now(),
		Embeddings: []pipeline.EmbeddingRecord{
			record(1, 30, "long chunk about revenue", unit(1, 0, 0)),
			record(2, 5, "short note", unit(0.9, 0.1, 0)),
			record(3, 25, "long chunk about costs", unit(0, 1, 0)),
		},
	}
}

func TestChromemStore_CreateAndPopulate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.CreateAndPopulate(ctx, "report_fastembed_20260314092653", testBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"report_fastembed_20260314092653"}, names)

	info, err := store.GetCollectionInfo(ctx, "report_fastembed_20260314092653")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, uint64(3), info.VectorCount)
	assert.Equal(t, uint64(3), info.Dimension)
}

func TestChromemStore_CreateAndPopulate_RefusesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateAndPopulate(ctx, "dup", testBatch())
	require.NoError(t, err)

	// A second populate must refuse, even with a different dimension.
	wider := testBatch()
	wider.VectorDimension = 4
	for i := range wider.Embeddings {
		wider.Embeddings[i].Embedding = unit(1, 0, 0, 0)
	}
	_, err = store.CreateAndPopulate(ctx, "dup", wider)
	require.ErrorIs(t, err, pipeline.ErrFatal)

	info, err := store.GetCollectionInfo(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.VectorCount)
	assert.Equal(t, uint64(3), info.Dimension)
}

func TestChromemStore_CreateAndPopulate_InvalidBatch(t *testing.T) {
	store := newTestStore(t)

	batch := testBatch()
	batch.Embeddings[1].Embedding = []float32{1, 0} // wrong width

	_, err := store.CreateAndPopulate(context.Background(), "bad", batch)
	require.ErrorIs(t, err, pipeline.ErrInvalidRecord)
}

func TestChromemStore_GetCollectionInfo_Missing(t *testing.T) {
	store := newTestStore(t)

	info, err := store.GetCollectionInfo(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, info.Exists)
	assert.Zero(t, info.VectorCount)
}

func TestChromemStore_SampleRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateAndPopulate(ctx, "sample", testBatch())
	require.NoError(t, err)

	meta, err := store.SampleRecord(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, "fastembed", meta["embedding_provider"])
	assert.Equal(t, "BAAI/bge-small-en-v1.5", meta["embedding_model"])
	assert.Equal(t, int64(1), meta["chunk_id"])
	assert.Equal(t, "report.pdf", meta["document_name"])
}

func TestChromemStore_SampleRecord_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SampleRecord(context.Background(), "nope")
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromemStore_Query(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateAndPopulate(ctx, "search", testBatch())
	require.NoError(t, err)

	results, err := store.Query(ctx, "search", QueryParams{
		Vector: unit(1, 0, 0),
		Limit:  3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Best match is the identical vector.
	assert.Equal(t, "long chunk about revenue", results[0].Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.001)

	// Scores are sorted descending.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestChromemStore_Query_MinWordCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateAndPopulate(ctx, "filtered", testBatch())
	require.NoError(t, err)

	results, err := store.Query(ctx, "filtered", QueryParams{
		Vector:       unit(0.9, 0.1, 0),
		Limit:        3,
		MinWordCount: 20,
	})
	require.NoError(t, err)

	for _, r := range results {
		count, ok := r.Metadata["word_count"].(int64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, count, int64(20), "short chunks are filtered out")
	}
	// The 5-word chunk is the closest vector but must not appear.
	for _, r := range results {
		assert.NotEqual(t, "short note", r.Text)
	}
}

func TestChromemStore_DeleteCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateAndPopulate(ctx, "doomed", testBatch())
	require.NoError(t, err)

	require.NoError(t, store.DeleteCollection(ctx, "doomed"))

	info, err := store.GetCollectionInfo(ctx, "doomed")
	require.NoError(t, err)
	assert.False(t, info.Exists)

	err = store.DeleteCollection(ctx, "doomed")
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestRecordPayload_Truncation(t *testing.T) {
	long := make([]byte, 6000)
	for i := range long {
		long[i] = 'x'
	}
	batch := testBatch()
	record := batch.Embeddings[0]
	record.Metadata["content"] = string(long)

	payload := recordPayload(batch, record)
	assert.Len(t, payload["content"], maxContentLen)
	assert.Equal(t, "1", payload["page_number"])
	assert.Equal(t, int64(30), payload["word_count"])
}
