package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// Payload field length limits. Chunk content is capped well above any
// sane chunk size; the short fields guard against malformed metadata
// blowing up the index.
const (
	maxContentLen   = 5000
	maxNameLen      = 255
	maxPageFieldLen = 10
	maxLabelLen     = 50
)

// recordPayload flattens one embedding record into the payload schema
// both providers store. Provider and model come from the batch header,
// not the record, so every point in a collection agrees on provenance.
func recordPayload(batch *pipeline.EmbeddingBatch, record pipeline.EmbeddingRecord) map[string]any {
	meta := record.Metadata
	return map[string]any{
		"content":             truncate(metaString(meta, "content"), maxContentLen),
		"document_name":       truncate(batch.Filename, maxNameLen),
		"chunk_id":            metaInt(meta, "chunk_id"),
		"total_chunks":        metaInt(meta, "total_chunks"),
		"word_count":          metaInt(meta, "word_count"),
		"page_number":         truncate(pageField(meta, "page_number"), maxPageFieldLen),
		"page_range":          truncate(metaString(meta, "page_range"), maxPageFieldLen),
		"embedding_provider":  truncate(batch.EmbeddingProvider, maxLabelLen),
		"embedding_model":     truncate(batch.EmbeddingModel, maxLabelLen),
		"embedding_timestamp": truncate(metaString(meta, "embedding_timestamp"), maxLabelLen),
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// metaInt tolerates the numeric types JSON round-trips produce.
func metaInt(meta map[string]any, key string) int64 {
	switch v := meta[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// pageField renders page_number as a string, matching page_range. Loaded
// batches may hold it as a number.
func pageField(meta map[string]any, key string) string {
	if s := metaString(meta, key); s != "" {
		return s
	}
	return "0"
}
