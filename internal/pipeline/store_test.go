package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDocument() *Document {
	return &Document{
		Filename:       "report.pdf",
		TotalChunks:    2,
		TotalPages:     1,
		LoadingMethod:  "text",
		ChunkingMethod: "by_pages",
		Timestamp:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Chunks: []Chunk{
			{Content: "first chunk", Metadata: ChunkMetadata{ChunkID: 1, PageNumber: 1, PageRange: "1", WordCount: 2}},
			{Content: "second chunk", Metadata: ChunkMetadata{ChunkID: 2, PageNumber: 1, PageRange: "1", WordCount: 2}},
		},
	}
}

func testEmbeddingBatch() *EmbeddingBatch {
	return &EmbeddingBatch{
		Filename:          "report.pdf",
		EmbeddingProvider: "fastembed",
		EmbeddingModel:    "BAAI/bge-small-en-v1.5",
		VectorDimension:   3,
		CreatedAt:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Embeddings: []EmbeddingRecord{
			{Embedding: []float32{0.1, 0.2, 0.3}, Metadata: map[string]any{"chunk_id": 1}},
		},
	}
}

func TestNewStoreRequiresDir(t *testing.T) {
	_, err := NewStore("", zap.NewNop())
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestStoreDocumentRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	path, err := store.SaveDocument(testDocument())
	require.NoError(t, err)
	assert.Equal(t, "report_by_pages_20260314092653.json", filepath.Base(path))

	got, err := store.LoadDocument(filepath.Base(path))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.Filename)
	assert.Len(t, got.Chunks, 2)
	assert.Equal(t, "first chunk", got.Chunks[0].Content)
}

func TestStoreRejectsInvalidDocument(t *testing.T) {
	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	doc := testDocument()
	doc.TotalChunks = 5
	_, err = store.SaveDocument(doc)
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStoreBatchRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	path, err := store.SaveBatch(testEmbeddingBatch())
	require.NoError(t, err)
	assert.Equal(t, "report_fastembed_20260314093000.json", filepath.Base(path))

	got, err := store.LoadBatch(filepath.Base(path))
	require.NoError(t, err)
	assert.Equal(t, "fastembed", got.EmbeddingProvider)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embeddings[0].Embedding)
}

func TestStoreLoadRejectsCorruptedRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{truncated"), 0o644))
	_, err = store.LoadDocument("bad.json")
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStoreLoadBatchRevalidates(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	// Valid JSON, but the vector disagrees with the declared dimension.
	record := `{"filename":"a.pdf","embedding_provider":"fastembed","embedding_model":"m","vector_dimension":4,"created_at":"2026-03-14T09:30:00Z","embeddings":[{"embedding":[0.1,0.2],"metadata":{}}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edited.json"), []byte(record), 0o644))

	_, err = store.LoadBatch("edited.json")
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStoreSaveResultSet(t *testing.T) {
	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	rs := &ResultSet{
		Query:        "what is the revenue",
		CollectionID: "report_fastembed_20260314092653",
		Results:      []SearchResult{{Text: "revenue was up", Score: 0.91}},
	}
	path, err := store.SaveResultSet(rs)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.False(t, rs.Timestamp.IsZero())

	_, err = store.SaveResultSet(&ResultSet{Query: "q"})
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestStoreListAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	_, err = store.SaveDocument(testDocument())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	names, err := store.List()
	require.NoError(t, err)
	require.Equal(t, []string{"report_by_pages_20260314092653.json"}, names)

	require.NoError(t, store.Delete(names[0]))
	names, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
