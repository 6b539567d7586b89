package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// ImageBlock is an image extracted from a page, with best-effort OCR text.
type ImageBlock struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	OCRText string `json:"ocr_text"`
}

// TableBlock is a table extracted from a page, rendered as a pipe-delimited
// markdown grid regardless of the source format.
type TableBlock struct {
	Index   int    `json:"index"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// PageRecord is one page of extracted text. Page numbers are 1-based and
// monotonically non-decreasing across a load; pages with no extracted text
// are never emitted.
type PageRecord struct {
	Page   int          `json:"page"`
	Text   string       `json:"text"`
	Images []ImageBlock `json:"images,omitempty"`
	Tables []TableBlock `json:"tables,omitempty"`
	OCR    bool         `json:"is_ocr,omitempty"`
	Table  bool         `json:"is_table,omitempty"`

	// Metadata carries loader-specific fields, such as the element
	// category assigned by structure-aware extraction.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChunkMetadata is the provenance attached to every chunk.
type ChunkMetadata struct {
	// ChunkID is 1-based and sequential across the whole document.
	ChunkID    int    `json:"chunk_id"`
	PageNumber int    `json:"page_number"`
	PageRange  string `json:"page_range"`
	WordCount  int    `json:"word_count"`

	// Extra holds method-specific fields.
	Extra map[string]any `json:"extra,omitempty"`
}

// Chunk is a retrieval-sized span of document text.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Document is the persisted record produced by chunking: the full chunk
// list plus enough provenance to reload it without recomputation.
type Document struct {
	Filename       string    `json:"filename"`
	TotalChunks    int       `json:"total_chunks"`
	TotalPages     int       `json:"total_pages"`
	LoadingMethod  string    `json:"loading_method"`
	ChunkingMethod string    `json:"chunking_method"`
	Timestamp      time.Time `json:"timestamp"`
	Chunks         []Chunk   `json:"chunks"`
}

// Validate checks the document's structural invariants: a non-empty chunk
// list whose IDs form a contiguous 1..N sequence.
func (d *Document) Validate() error {
	if len(d.Chunks) == 0 {
		return fmt.Errorf("%w: document has no chunks", ErrInvalidRecord)
	}
	if d.TotalChunks != len(d.Chunks) {
		return fmt.Errorf("%w: total_chunks %d does not match chunk count %d", ErrInvalidRecord, d.TotalChunks, len(d.Chunks))
	}
	for i, c := range d.Chunks {
		if c.Metadata.ChunkID != i+1 {
			return fmt.Errorf("%w: chunk at position %d has id %d, want %d", ErrInvalidRecord, i, c.Metadata.ChunkID, i+1)
		}
	}
	return nil
}

// QualityReport summarizes an informational document quality assessment.
// It never blocks ingestion.
type QualityReport struct {
	FileSize      int64   `json:"file_size"`
	PageCount     int     `json:"page_count"`
	TextRatio     float64 `json:"text_ratio"`
	ImageRatio    float64 `json:"image_ratio"`
	OCRRequired   bool    `json:"ocr_required"`
	MaxResolution float64 `json:"resolution"`
}

// LoadResult is the explicit result of one load call. Loaders return it
// instead of holding page state on the loader instance, so concurrent
// loads never cross-contaminate.
type LoadResult struct {
	Pages      []PageRecord   `json:"pages"`
	TotalPages int            `json:"total_pages"`
	Method     string         `json:"loading_method"`
	Quality    *QualityReport `json:"quality,omitempty"`
}

// EmbeddingRecord pairs one vector with the metadata of the chunk it
// embeds, plus the embedding provenance fields.
type EmbeddingRecord struct {
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
}

// EmbeddingBatch is the persisted record produced by the embedding
// gateway and consumed by the vector index.
type EmbeddingBatch struct {
	Filename          string            `json:"filename"`
	EmbeddingProvider string            `json:"embedding_provider"`
	EmbeddingModel    string            `json:"embedding_model"`
	VectorDimension   int               `json:"vector_dimension"`
	CreatedAt         time.Time         `json:"created_at"`
	Embeddings        []EmbeddingRecord `json:"embeddings"`
}

// Validate rejects a batch missing any required field or containing a
// vector whose length disagrees with the declared dimension. Index
// population calls this before touching the store, so a bad batch never
// leaves a partially written collection behind.
func (b *EmbeddingBatch) Validate() error {
	if len(b.Embeddings) == 0 {
		return fmt.Errorf("%w: embeddings must be a non-empty array", ErrInvalidRecord)
	}
	if b.VectorDimension <= 0 {
		return fmt.Errorf("%w: vector_dimension must be positive, got %d", ErrInvalidRecord, b.VectorDimension)
	}
	if strings.TrimSpace(b.EmbeddingProvider) == "" {
		return fmt.Errorf("%w: embedding_provider must not be blank", ErrInvalidRecord)
	}
	for i, rec := range b.Embeddings {
		if len(rec.Embedding) != b.VectorDimension {
			return fmt.Errorf("%w: embedding %d has dimension %d, declared %d", ErrInvalidRecord, i, len(rec.Embedding), b.VectorDimension)
		}
	}
	return nil
}

// SearchResult is one ranked hit, echoing the matched record's metadata.
type SearchResult struct {
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// ResultSet is the persisted form of one search: query, target collection,
// timestamp, and the full filtered result list.
type ResultSet struct {
	Query        string         `json:"query"`
	CollectionID string         `json:"collection_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Results      []SearchResult `json:"results"`
}

// WordCount counts whitespace-delimited words. Chunk word counts are
// always recomputed with this, never trusted from upstream.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
