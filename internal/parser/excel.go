package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// parseExcel renders every non-empty sheet of a workbook as one table
// block. Sheet names become block titles and the sheet order is
// preserved, so the output reads like the workbook.
func (p *Parser) parseExcel(content []byte) (*Output, error) {
	book, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer book.Close()

	out := &Output{Metadata: map[string]any{}}
	for i, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		out.Blocks = append(out.Blocks, Block{
			Type:    BlockTable,
			Index:   i + 1,
			Title:   sheet,
			Content: RenderTable(rows),
		})
	}

	if len(out.Blocks) == 0 {
		return nil, fmt.Errorf("%w: workbook has no populated sheets", pipeline.ErrEmptyInput)
	}
	out.Metadata["sheets"] = len(out.Blocks)
	return out, nil
}
