package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// OCRBackend is the external image-to-text capability the ocr method
// delegates to. See the ocr package for the canonical definition.
type OCRBackend interface {
	Available() bool
	RecognizePage(ctx context.Context, path string, page int) (string, error)
}

// ocrLoader runs OCR-based extraction: every page is recognized through
// the configured backend. When no backend is available the load degrades
// to the fallback text-layer method with a warning instead of aborting.
type ocrLoader struct {
	logger   *zap.Logger
	backend  OCRBackend
	fallback Loader
}

func (l *ocrLoader) Load(ctx context.Context, path string) (*pipeline.LoadResult, error) {
	if l.backend == nil || !l.backend.Available() {
		l.logger.Warn("ocr backend unavailable, falling back to text extraction",
			zap.String("path", path),
		)
		return l.fallback.Load(ctx, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, statErr := file.Stat()
	if statErr != nil {
		file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, statErr)
	}
	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("reading pdf %s: %w", path, err)
	}
	total := reader.NumPage()
	file.Close()

	var pages []pipeline.PageRecord
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := l.backend.RecognizePage(ctx, path, i)
		if err != nil {
			return nil, fmt.Errorf("ocr page %d of %s: %w", i, path, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			// A page OCR finds nothing on is dropped, never stored empty.
			continue
		}
		pages = append(pages, pipeline.PageRecord{Page: i, Text: text, OCR: true})
	}

	if err := validatePages(pages); err != nil {
		return nil, err
	}
	return &pipeline.LoadResult{Pages: pages, TotalPages: total}, nil
}
