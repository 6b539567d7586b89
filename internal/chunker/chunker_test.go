package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

func testPages() []pipeline.PageRecord {
	return []pipeline.PageRecord{
		{Page: 1, Text: "The quick brown fox jumps over the lazy dog.\n\nA second paragraph sits on the first page."},
		{Page: 2, Text: "Page two holds one more paragraph with a handful of extra words for splitting."},
	}
}

func TestChunk_UnknownMethod(t *testing.T) {
	svc := NewService(zap.NewNop())

	_, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "by_vibes", Options{})
	require.ErrorIs(t, err, pipeline.ErrUnsupportedMethod)
	assert.Contains(t, err.Error(), "by_vibes")
}

func TestChunk_EmptyPages(t *testing.T) {
	svc := NewService(zap.NewNop())

	_, err := svc.Chunk(context.Background(), "doc.pdf", "text", nil, "by_pages", Options{})
	require.ErrorIs(t, err, pipeline.ErrEmptyInput)

	blank := []pipeline.PageRecord{{Page: 1, Text: "   \n\t"}}
	_, err = svc.Chunk(context.Background(), "doc.pdf", "text", blank, "by_pages", Options{})
	require.ErrorIs(t, err, pipeline.ErrEmptyInput)
}

func TestChunk_ByPages(t *testing.T) {
	svc := NewService(zap.NewNop())

	doc, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "by_pages", Options{})
	require.NoError(t, err)

	require.Len(t, doc.Chunks, 2)
	assert.Equal(t, 2, doc.TotalChunks)
	assert.Equal(t, 2, doc.TotalPages)
	assert.Equal(t, "by_pages", doc.ChunkingMethod)
	assert.Equal(t, "text", doc.LoadingMethod)

	for i, chunk := range doc.Chunks {
		assert.Equal(t, i+1, chunk.Metadata.ChunkID)
		assert.Equal(t, i+1, chunk.Metadata.PageNumber)
		assert.Equal(t, pipeline.WordCount(chunk.Content), chunk.Metadata.WordCount)
	}
}

func TestChunk_ByParagraphs(t *testing.T) {
	svc := NewService(zap.NewNop())

	doc, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "by_paragraphs", Options{})
	require.NoError(t, err)

	require.Len(t, doc.Chunks, 3)
	assert.Equal(t, 1, doc.Chunks[0].Metadata.PageNumber)
	assert.Equal(t, 1, doc.Chunks[1].Metadata.PageNumber)
	assert.Equal(t, 2, doc.Chunks[2].Metadata.PageNumber)
	assert.Equal(t, "A second paragraph sits on the first page.", doc.Chunks[1].Content)
}

func TestPackWords(t *testing.T) {
	text := "alpha beta gamma delta epsilon"

	chunks := packWords(text, 11)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 11)
		for _, w := range strings.Fields(c) {
			assert.Contains(t, text, w, "words are never split")
		}
	}

	// Concatenating all chunks reproduces the word sequence.
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestPackWords_OversizedWord(t *testing.T) {
	chunks := packWords("tiny pneumonoultramicroscopicsilicovolcanoconiosis end", 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, "pneumonoultramicroscopicsilicovolcanoconiosis", chunks[1])
}

func TestChunk_FixedSize(t *testing.T) {
	svc := NewService(zap.NewNop())

	doc, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "fixed_size", Options{ChunkSize: 30})
	require.NoError(t, err)

	for _, chunk := range doc.Chunks {
		assert.LessOrEqual(t, len(chunk.Content), 30)
		assert.Positive(t, chunk.Metadata.PageNumber)
	}

	// Per-page reconstruction: joining page 1's chunks gives page 1's words.
	var pageOne []string
	for _, chunk := range doc.Chunks {
		if chunk.Metadata.PageNumber == 1 {
			pageOne = append(pageOne, chunk.Content)
		}
	}
	want := strings.Join(strings.Fields(testPages()[0].Text), " ")
	assert.Equal(t, want, strings.Join(pageOne, " "))
}

func TestChunk_BySentences(t *testing.T) {
	svc := NewService(zap.NewNop())

	doc, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "by_sentences", Options{ChunkSize: 40, Overlap: 5})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Chunks)

	for i, chunk := range doc.Chunks {
		assert.Equal(t, i+1, chunk.Metadata.ChunkID)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content))
		assert.Positive(t, chunk.Metadata.PageNumber)
	}
}

func TestChunk_ByChars_PageAttribution(t *testing.T) {
	svc := NewService(zap.NewNop())

	// A budget large enough to hold everything yields one chunk spanning
	// both pages.
	doc, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "by_chars", Options{ChunkSize: 5000, Overlap: 10})
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, 1, doc.Chunks[0].Metadata.PageNumber)
	assert.Equal(t, "1-2", doc.Chunks[0].Metadata.PageRange)
}

func TestChunk_ByWords_Budget(t *testing.T) {
	svc := NewService(zap.NewNop())

	doc, err := svc.Chunk(context.Background(), "doc.pdf", "text", testPages(), "by_words", Options{ChunkSize: 10, Overlap: 2})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Chunks)

	for _, chunk := range doc.Chunks {
		assert.LessOrEqual(t, chunk.Metadata.WordCount, 10)
	}
}

func TestChunk_ByMarkdown(t *testing.T) {
	pages := []pipeline.PageRecord{
		{Page: 1, Text: "# Title\n\nIntro paragraph under the title.\n\n## Section\n\nBody text for the section with several words."},
	}
	svc := NewService(zap.NewNop())

	doc, err := svc.Chunk(context.Background(), "doc.md", "text", pages, "by_markdown", Options{ChunkSize: 60, Overlap: 10})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Chunks)
	require.NoError(t, doc.Validate())
}

func TestChunk_ByHTML_KeepSeparator(t *testing.T) {
	pages := []pipeline.PageRecord{
		{Page: 1, Text: "<p>alpha</p><p>beta</p>"},
	}
	svc := NewService(zap.NewNop())

	kept, err := svc.Chunk(context.Background(), "doc.html", "text", pages, "by_html",
		Options{ChunkSize: 15, Overlap: 1, KeepSeparator: true})
	require.NoError(t, err)
	require.NotEmpty(t, kept.Chunks)
	for _, chunk := range kept.Chunks {
		assert.True(t, strings.HasPrefix(chunk.Content, "<p>"), "chunk %q should keep its tag", chunk.Content)
	}

	dropped, err := svc.Chunk(context.Background(), "doc.html", "text", pages, "by_html",
		Options{ChunkSize: 15, Overlap: 1})
	require.NoError(t, err)
	require.NotEmpty(t, dropped.Chunks)
	for _, chunk := range dropped.Chunks {
		assert.False(t, strings.HasPrefix(chunk.Content, "<p"), "chunk %q should drop the split tag", chunk.Content)
	}
}

func TestMethods(t *testing.T) {
	svc := NewService(zap.NewNop())

	assert.Equal(t, []string{
		"by_chars", "by_html", "by_markdown", "by_pages",
		"by_paragraphs", "by_sentences", "by_words", "fixed_size",
	}, svc.Methods())
}

func TestLocatePages(t *testing.T) {
	spans := []pageSpan{
		{start: 0, end: 10, page: 1},
		{start: 12, end: 30, page: 2},
		{start: 32, end: 50, page: 3},
	}

	first, last := locatePages(spans, 2, 8)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, last)

	first, last = locatePages(spans, 5, 40)
	assert.Equal(t, 1, first)
	assert.Equal(t, 3, last)

	first, last = locatePages(spans, 50, 60)
	assert.Zero(t, first)
}
