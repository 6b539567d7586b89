package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// parsePDF extracts typed blocks from a PDF. The method selects how much
// structure is recovered: all_text emits one text block per page,
// extract_images additionally emits an image block per embedded image
// with best-effort OCR text, extract_tables additionally emits detected
// tables rendered as markdown grids.
func (p *Parser) parsePDF(ctx context.Context, content []byte, method string) (*Output, error) {
	switch method {
	case "all_text", "extract_images", "extract_tables":
	default:
		return nil, fmt.Errorf("%w: pdf parsing method %q", pipeline.ErrUnsupportedMethod, method)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}

	out := &Output{}
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		if text, err := page.GetPlainText(nil); err == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				out.Blocks = append(out.Blocks, Block{
					Type:    BlockText,
					Page:    i,
					Content: trimmed,
				})
			}
		} else {
			p.logger.Warn("skipping unreadable page",
				zap.Int("page", i),
				zap.Error(err),
			)
		}

		switch method {
		case "extract_images":
			out.Blocks = append(out.Blocks, p.pageImages(ctx, page, i)...)
		case "extract_tables":
			if table := DetectTable(page); len(table) > 0 {
				out.Blocks = append(out.Blocks, Block{
					Type:    BlockTable,
					Page:    i,
					Content: RenderTable(table),
				})
			}
		}
	}

	out.Metadata = map[string]any{"total_pages": total}
	return out, nil
}

// pageImages extracts image XObjects from the page. OCR is attempted on
// each image; a failure logs a warning and leaves the block's recognized
// text empty rather than failing the parse.
func (p *Parser) pageImages(ctx context.Context, page pdf.Page, pageNum int) []Block {
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return nil
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return nil
	}

	var blocks []Block
	index := 0
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		if obj.IsNull() || obj.Key("Subtype").Name() != "Image" {
			continue
		}
		index++

		block := Block{
			Type:  BlockImage,
			Page:  pageNum,
			Index: index,
		}
		data, err := readStream(obj)
		if err != nil {
			p.logger.Warn("reading image stream failed",
				zap.Int("page", pageNum),
				zap.String("xobject", name),
				zap.Error(err),
			)
			blocks = append(blocks, block)
			continue
		}

		if p.ocr.Available() {
			if text, err := p.ocr.RecognizeImage(ctx, data); err != nil {
				p.logger.Warn("image ocr failed",
					zap.Int("page", pageNum),
					zap.String("xobject", name),
					zap.Error(err),
				)
			} else {
				block.OCRText = strings.TrimSpace(text)
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func readStream(v pdf.Value) (data []byte, err error) {
	// The underlying decoder panics on malformed filter chains.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding stream: %v", r)
		}
	}()
	rc := v.Reader()
	defer rc.Close()
	return io.ReadAll(rc)
}
