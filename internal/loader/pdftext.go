package loader

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// textLoader implements fast text-layer extraction: the PDF's own text
// content per page, no layout reconstruction. The cheapest method and the
// fallback for methods whose backend is unavailable.
type textLoader struct {
	logger *zap.Logger
}

func (l *textLoader) Load(ctx context.Context, path string) (*pipeline.LoadResult, error) {
	return loadPDFPages(ctx, path, l.logger, func(page pdf.Page, num int) (string, error) {
		return page.GetPlainText(nil)
	})
}

// layoutLoader reconstructs reading order from glyph positions: rows are
// clustered by Y coordinate and sorted left to right. Slower than the
// text layer but keeps columns and table-ish regions readable.
type layoutLoader struct {
	logger *zap.Logger
}

func (l *layoutLoader) Load(ctx context.Context, path string) (*pipeline.LoadResult, error) {
	return loadPDFPages(ctx, path, l.logger, func(page pdf.Page, num int) (string, error) {
		return layoutText(page), nil
	})
}

// loadPDFPages opens the file once and applies extract to every page,
// dropping pages whose extracted text is blank.
func loadPDFPages(ctx context.Context, path string, logger *zap.Logger, extract func(pdf.Page, int) (string, error)) (*pipeline.LoadResult, error) {
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
		text, err := extract(page, i)
		if err != nil {
			// One unreadable page does not abort the load; pagination of
			// the remaining pages is preserved by the page counter.
			logger.Warn("skipping unreadable page",
				zap.String("path", path),
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, pipeline.PageRecord{Page: i, Text: text})
	}

	if err := validatePages(pages); err != nil {
		return nil, err
	}
	return &pipeline.LoadResult{Pages: pages, TotalPages: total}, nil
}

// layoutText rebuilds page text from positioned glyph runs.
func layoutText(page pdf.Page) string {
	content := page.Content()
	if len(content.Text) == 0 {
		return ""
	}

	// Cluster runs into rows by Y coordinate. PDF Y grows upward, so
	// higher Y means earlier in reading order.
	const rowTolerance = 2.0
	runs := make([]pdf.Text, len(content.Text))
	copy(runs, content.Text)
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var (
		lines   []string
		current []pdf.Text
		rowY    float64
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool { return current[i].X < current[j].X })
		var sb strings.Builder
		for _, r := range current {
			sb.WriteString(r.S)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
		current = current[:0]
	}

	for _, r := range runs {
		if len(current) == 0 || rowY-r.Y <= rowTolerance {
			if len(current) == 0 {
				rowY = r.Y
			}
			current = append(current, r)
			continue
		}
		flush()
		rowY = r.Y
		current = append(current, r)
	}
	flush()

	return strings.Join(lines, "\n")
}
