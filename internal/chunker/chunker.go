// Package chunker splits loaded documents into retrieval-sized chunks.
//
// Eight strategies are registered by name. Page-scoped strategies
// (by_pages, fixed_size, by_paragraphs, by_sentences) split each page
// independently and carry exact page attribution. Document-scoped
// strategies (by_chars, by_words, by_markdown, by_html) split the
// concatenated text and attribute pages best-effort by locating each
// chunk in the source. Chunk IDs are always assigned globally, 1..N in
// document order, regardless of strategy.
package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// Options tunes a chunking run. Zero values take defaults.
type Options struct {
	// ChunkSize is the splitter budget: characters for most strategies,
	// words for by_words.
	ChunkSize int `koanf:"chunk_size" json:"chunk_size"`

	// Overlap is carried between adjacent chunks by the recursive
	// splitters. Page-scoped strategies ignore it except by_sentences.
	Overlap int `koanf:"overlap" json:"overlap"`

	// KeepSeparator keeps the split separator attached to the chunk text
	// for the document-scoped strategies.
	KeepSeparator bool `koanf:"keep_separator" json:"keep_separator"`
}

func (o *Options) applyDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.Overlap <= 0 {
		o.Overlap = 200
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize / 5
	}
}

// strategy produces chunks without IDs; the service numbers them.
type strategy func(ctx context.Context, pages []pipeline.PageRecord, opts Options) ([]pipeline.Chunk, error)

// Service dispatches chunking requests to registered strategies.
type Service struct {
	logger *zap.Logger

	mu         sync.RWMutex
	strategies map[string]strategy
}

// NewService creates a chunking service with all built-in strategies
// registered.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		logger:     logger,
		strategies: make(map[string]strategy),
	}
	s.strategies["by_pages"] = byPages
	s.strategies["fixed_size"] = fixedSize
	s.strategies["by_paragraphs"] = byParagraphs
	s.strategies["by_sentences"] = bySentences
	s.strategies["by_chars"] = byChars
	s.strategies["by_words"] = byWords
	s.strategies["by_markdown"] = byMarkdown
	s.strategies["by_html"] = byHTML
	return s
}

// Methods returns the registered strategy names, sorted.
func (s *Service) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chunk splits the loaded pages using the named strategy and assembles
// the result into a validated document. filename and loadingMethod are
// recorded as provenance.
func (s *Service) Chunk(ctx context.Context, filename, loadingMethod string, pages []pipeline.PageRecord, method string, opts Options) (*pipeline.Document, error) {
	start := time.Now()
	opts.applyDefaults()

	s.mu.RLock()
	split, ok := s.strategies[method]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chunking method %q", pipeline.ErrUnsupportedMethod, method)
	}

	if !hasText(pages) {
		return nil, fmt.Errorf("%w: no page text to chunk", pipeline.ErrEmptyInput)
	}

	chunks, err := split(ctx, pages, opts)
	if err != nil {
		return nil, fmt.Errorf("chunking with %s: %w", method, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", pipeline.ErrEmptyInput, method)
	}

	for i := range chunks {
		chunks[i].Metadata.ChunkID = i + 1
		chunks[i].Metadata.WordCount = pipeline.WordCount(chunks[i].Content)
	}

	doc := &pipeline.Document{
		Filename:       filename,
		TotalChunks:    len(chunks),
		TotalPages:     len(pages),
		LoadingMethod:  loadingMethod,
		ChunkingMethod: method,
		Timestamp:      time.Now(),
		Chunks:         chunks,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("document chunked",
		zap.String("filename", filename),
		zap.String("method", method),
		zap.Int("chunks", len(chunks)),
		zap.Int("pages", len(pages)),
		zap.Duration("duration", time.Since(start)),
	)
	return doc, nil
}

func hasText(pages []pipeline.PageRecord) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// pageChunk builds a chunk attributed to a single page.
func pageChunk(text string, page int) pipeline.Chunk {
	return pipeline.Chunk{
		Content: text,
		Metadata: pipeline.ChunkMetadata{
			PageNumber: page,
			PageRange:  fmt.Sprintf("%d", page),
		},
	}
}
