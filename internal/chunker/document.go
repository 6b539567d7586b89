package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// splitText is the common shape of the langchaingo splitters.
type splitText interface {
	SplitText(text string) ([]string, error)
}

// htmlSeparators split preferentially at block-level tag boundaries,
// falling back to whitespace.
var htmlSeparators = []string{
	"<body", "<div", "<p", "<br", "<li",
	"<h1", "<h2", "<h3", "<h4", "<h5", "<h6",
	"<span", "<table", "<tr", "<td", "<th",
	"<ul", "<ol", "<header", "<footer",
	"\n\n", "\n", " ", "",
}

func byChars(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error) {
	return splitDocument(ctx, pages, textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.Overlap),
		textsplitter.WithKeepSeparator(opts.KeepSeparator),
	))
}

func byWords(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error) {
	return splitDocument(ctx, pages, textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.Overlap),
		textsplitter.WithKeepSeparator(opts.KeepSeparator),
		textsplitter.WithLenFunc(pipeline.WordCount),
	))
}

func byMarkdown(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error) {
	return splitDocument(ctx, pages, textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.Overlap),
		textsplitter.WithKeepSeparator(opts.KeepSeparator),
	))
}

func byHTML(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error) {
	return splitDocument(ctx, pages, textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.Overlap),
		textsplitter.WithKeepSeparator(opts.KeepSeparator),
		textsplitter.WithSeparators(htmlSeparators),
	))
}

// pageSpan records where one page's text landed in the concatenated
// document.
type pageSpan struct {
	start, end int
	page       int
}

// splitDocument concatenates all pages, splits the whole text, and
// attributes each resulting chunk back to the page or page range it came
// from. Splitters may rewrite text (markdown normalization, trimming),
// so attribution is best effort: a chunk that cannot be located keeps
// page 0 with range "unknown".
func splitDocument(ctx context.Context, pages []pipeline.PageRecord, splitter splitText) ([]pipeline.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	var spans []pageSpan
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		start := sb.Len()
		sb.WriteString(page.Text)
		spans = append(spans, pageSpan{start: start, end: sb.Len(), page: page.Page})
	}
	full := sb.String()

	pieces, err := splitter.SplitText(full)
	if err != nil {
		return nil, fmt.Errorf("splitting document: %w", err)
	}

	chunks := make([]pipeline.Chunk, 0, len(pieces))
	searchFrom := 0
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}

		chunk := pipeline.Chunk{
			Content: trimmed,
			Metadata: pipeline.ChunkMetadata{
				PageRange: "unknown",
			},
		}

		// Overlapping chunks march forward through the document, so the
		// next match never starts before the previous one.
		if at := indexFrom(full, trimmed, searchFrom); at >= 0 {
			first, last := locatePages(spans, at, at+len(trimmed))
			if first > 0 {
				chunk.Metadata.PageNumber = first
				if last > first {
					chunk.Metadata.PageRange = fmt.Sprintf("%d-%d", first, last)
				} else {
					chunk.Metadata.PageRange = fmt.Sprintf("%d", first)
				}
			}
			searchFrom = at + 1
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// indexFrom finds needle at or after from, retrying from the top so an
// overlap that begins before the previous chunk's match still resolves.
func indexFrom(haystack, needle string, from int) int {
	if from < len(haystack) {
		if at := strings.Index(haystack[from:], needle); at >= 0 {
			return from + at
		}
	}
	return strings.Index(haystack, needle)
}

// locatePages returns the first and last page whose span overlaps
// [start, end). Zero means no overlap found.
func locatePages(spans []pageSpan, start, end int) (first, last int) {
	for _, span := range spans {
		if span.end <= start || span.start >= end {
			continue
		}
		if first == 0 {
			first = span.page
		}
		last = span.page
	}
	return first, last
}
