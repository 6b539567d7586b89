// Package parser extracts structured content blocks from source files.
//
// The parser goes beyond the loader's plain text: it produces typed
// blocks (text, image, table) per page. PDF parsing is polymorphic over
// method (all_text, extract_images, extract_tables); Markdown, Word, and
// Excel files each get a dedicated path. Tables from any source are
// rendered to the same pipe-delimited markdown grid so the chunker never
// sees the origin format.
package parser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/ocr"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// BlockType discriminates parsed content blocks.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
	BlockTable BlockType = "table"
)

// Block is one typed unit of parsed content.
type Block struct {
	Type    BlockType `json:"type"`
	Page    int       `json:"page,omitempty"`
	Index   int       `json:"index,omitempty"`
	Title   string    `json:"title,omitempty"`
	Content string    `json:"content"`

	// OCRText is the best-effort recognized text for image blocks. An
	// OCR failure leaves it empty; the block is still emitted.
	OCRText string `json:"ocr_text,omitempty"`

	// URL is the source location for markdown image references.
	URL string `json:"url,omitempty"`
}

// Output is the result of one parse call.
type Output struct {
	Metadata map[string]any `json:"metadata"`
	Blocks   []Block        `json:"content"`
}

// Parser dispatches parse requests by file type and method.
type Parser struct {
	logger *zap.Logger
	ocr    ocr.Backend
}

// New creates a parser. The OCR backend may be nil; image blocks are then
// emitted without recognized text.
func New(logger *zap.Logger, backend ocr.Backend) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backend == nil {
		backend = ocr.Noop{}
	}
	return &Parser{logger: logger, ocr: backend}
}

// Parse extracts typed blocks from the file content. fileType selects the
// format (pdf, markdown, docx, excel); method applies to PDF only
// (all_text, extract_images, extract_tables).
func (p *Parser) Parse(ctx context.Context, content []byte, fileType, method string, meta map[string]any) (*Output, error) {
	start := time.Now()

	var (
		out *Output
		err error
	)
	switch fileType {
	case "pdf":
		out, err = p.parsePDF(ctx, content, method)
	case "markdown":
		out, err = p.parseMarkdown(content)
	case "docx":
		out, err = p.parseDocx(content)
	case "excel":
		out, err = p.parseExcel(content)
	default:
		return nil, fmt.Errorf("%w: file type %q", pipeline.ErrUnsupportedMethod, fileType)
	}
	if err != nil {
		p.logger.Error("parse failed",
			zap.String("file_type", fileType),
			zap.String("method", method),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	out.Metadata = mergeMetadata(meta, map[string]any{
		"file_type":      fileType,
		"parsing_method": method,
		"timestamp":      time.Now().Format(time.RFC3339),
	})

	p.logger.Info("document parsed",
		zap.String("file_type", fileType),
		zap.String("method", method),
		zap.Int("blocks", len(out.Blocks)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
