// Package loader converts source documents into ordered page records.
//
// Extraction methods are registered strategies keyed by name, all
// producing the same PageRecord shape so downstream stages never care
// which backend ran. Supported methods: text (fast text-layer), layout
// (position-aware), ocr (delegated to an OCR backend with a documented
// fallback), elements (structure-aware partitioning), and tables
// (table-focused extraction).
package loader

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// Loader extracts pages from one source file.
type Loader interface {
	// Load returns the ordered page records for the file. Page numbers
	// are 1-based and monotonically non-decreasing; pages with no
	// extracted text are dropped.
	Load(ctx context.Context, path string) (*pipeline.LoadResult, error)
}

// Options controls one load call.
type Options struct {
	// Preprocess, when non-nil, is applied to the source file in place
	// before extraction. Any step failing aborts the load, since the
	// pagination downstream depends on the cleaned file.
	Preprocess *PreprocessOptions

	// QualityCheck attaches an informational QualityReport to the result.
	// It never blocks ingestion.
	QualityCheck bool
}

// Service dispatches load requests to registered extraction methods.
type Service struct {
	logger       *zap.Logger
	preprocessor Preprocessor

	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewService creates a loader service with the given dependencies and
// registers the built-in extraction methods. The OCR backend may be nil;
// the ocr method then degrades to the text method.
func NewService(logger *zap.Logger, backend OCRBackend, pre Preprocessor) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		logger:       logger,
		preprocessor: pre,
		loaders:      make(map[string]Loader),
	}
	s.Register("text", &textLoader{logger: logger})
	s.Register("layout", &layoutLoader{logger: logger})
	s.Register("ocr", &ocrLoader{logger: logger, backend: backend, fallback: &textLoader{logger: logger}})
	s.Register("elements", &elementLoader{logger: logger, inner: &textLoader{logger: logger}})
	s.Register("tables", &tableLoader{logger: logger})
	return s
}

// Register adds or replaces an extraction method. Adding a method never
// requires touching dispatch code.
func (s *Service) Register(method string, l Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders[method] = l
}

// Methods returns the registered method names, sorted.
func (s *Service) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.loaders))
	for name := range s.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load runs one extraction: optional in-place preprocessing, the selected
// method, and an optional quality assessment.
func (s *Service) Load(ctx context.Context, path, method string, opts Options) (*pipeline.LoadResult, error) {
	start := time.Now()

	s.mu.RLock()
	l, ok := s.loaders[method]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: loading method %q", pipeline.ErrUnsupportedMethod, method)
	}

	if opts.Preprocess != nil {
		if s.preprocessor == nil {
			return nil, fmt.Errorf("%w: preprocessing requested but no preprocessor configured", pipeline.ErrEmptyInput)
		}
		if err := applyPreprocess(s.preprocessor, path, *opts.Preprocess); err != nil {
			return nil, fmt.Errorf("preprocessing %s: %w", path, err)
		}
	}

	result, err := l.Load(ctx, path)
	if err != nil {
		s.logger.Error("load failed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	result.Method = method

	if opts.QualityCheck {
		report, qerr := AssessQuality(path)
		if qerr != nil {
			// Informational only; a failed assessment never blocks ingestion.
			s.logger.Warn("quality assessment failed", zap.String("path", path), zap.Error(qerr))
		} else {
			result.Quality = report
		}
	}

	s.logger.Info("document loaded",
		zap.String("path", path),
		zap.String("method", method),
		zap.Int("pages", len(result.Pages)),
		zap.Int("total_pages", result.TotalPages),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// validatePages enforces the page invariants shared by every method:
// 1-based, monotonically non-decreasing page numbers and no blank pages.
func validatePages(pages []pipeline.PageRecord) error {
	prev := 0
	for i, p := range pages {
		if p.Page < 1 {
			return fmt.Errorf("%w: page record %d has page number %d", pipeline.ErrInvalidRecord, i, p.Page)
		}
		if p.Page < prev {
			return fmt.Errorf("%w: page numbers decrease at record %d (%d after %d)", pipeline.ErrInvalidRecord, i, p.Page, prev)
		}
		prev = p.Page
	}
	return nil
}
