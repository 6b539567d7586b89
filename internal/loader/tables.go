package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/parser"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// tableLoader is the table-focused method: it detects column-aligned rows
// from glyph positions and emits each detected table as one page record
// rendered as a markdown grid. Pages with no detected table are dropped.
type tableLoader struct {
	logger *zap.Logger
}

func (l *tableLoader) Load(ctx context.Context, path string) (*pipeline.LoadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading pdf %s: %w", path, err)
	}

	total := reader.NumPage()
	var pages []pipeline.PageRecord
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		table := parser.DetectTable(page)
		if len(table) == 0 {
			continue
		}
		pages = append(pages, pipeline.PageRecord{
			Page:  i,
			Text:  parser.RenderTable(table),
			Table: true,
		})
	}

	if err := validatePages(pages); err != nil {
		return nil, err
	}
	return &pipeline.LoadResult{Pages: pages, TotalPages: total}, nil
}
