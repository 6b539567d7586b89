package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// byPages emits each non-blank page as one chunk.
func byPages(ctx context.Context, pages []pipeline.PageRecord, _ Options) ([]pipeline.Chunk, error) {
	var chunks []pipeline.Chunk
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		chunks = append(chunks, pageChunk(page.Text, page.Page))
	}
	return chunks, nil
}

// fixedSize packs whole words greedily into chunks up to the character
// budget, per page. Words never split across chunks; a single word
// longer than the budget becomes its own chunk.
func fixedSize(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error) {
	var chunks []pipeline.Chunk
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range packWords(page.Text, opts.ChunkSize) {
			chunks = append(chunks, pageChunk(text, page.Page))
		}
	}
	return chunks, nil
}

func packWords(text string, budget int) []string {
	var out []string
	var current []string
	length := 0

	for _, word := range strings.Fields(text) {
		cost := len(word)
		if length > 0 {
			cost++ // joining space
		}
		if length+cost > budget && len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
			length = 0
			cost = len(word)
		}
		current = append(current, word)
		length += cost
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// byParagraphs splits each page on blank lines.
func byParagraphs(ctx context.Context, pages []pipeline.PageRecord, _ Options) ([]pipeline.Chunk, error) {
	var chunks []pipeline.Chunk
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, para := range strings.Split(page.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, pageChunk(para, page.Page))
		}
	}
	return chunks, nil
}

// bySentences splits each page recursively at sentence boundaries.
func bySentences(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.Overlap),
		textsplitter.WithSeparators([]string{".", "!", "?", "\n", " "}),
	)

	var chunks []pipeline.Chunk
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		pieces, err := splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("splitting page %d: %w", page.Page, err)
		}
		for _, piece := range pieces {
			if piece = strings.TrimSpace(piece); piece != "" {
				chunks = append(chunks, pageChunk(piece, page.Page))
			}
		}
	}
	return chunks, nil
}
