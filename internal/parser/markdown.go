package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

var imageRefPattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)[^)]*\)`)

// parseMarkdown extracts text, image references, and pipe tables from a
// markdown document. Text is grouped under its nearest heading; tables
// are re-rendered through the canonical grid so downstream consumers see
// the same form PDF tables take.
func (p *Parser) parseMarkdown(content []byte) (*Output, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, fmt.Errorf("%w: markdown document is empty", pipeline.ErrEmptyInput)
	}

	out := &Output{}
	lines := strings.Split(string(content), "\n")

	var (
		title    string
		textBuf  []string
		tableBuf [][]string
		imageIdx int
	)

	flushText := func() {
		text := strings.TrimSpace(strings.Join(textBuf, "\n"))
		textBuf = textBuf[:0]
		if text == "" {
			return
		}
		out.Blocks = append(out.Blocks, Block{
			Type:    BlockText,
			Title:   title,
			Content: text,
		})
	}
	flushTable := func() {
		if len(tableBuf) >= 2 {
			out.Blocks = append(out.Blocks, Block{
				Type:    BlockTable,
				Title:   title,
				Content: RenderTable(tableBuf),
			})
		}
		tableBuf = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			if cells, ok := splitTableRow(trimmed); ok {
				tableBuf = append(tableBuf, cells)
			}
			continue
		}
		flushTable()

		if strings.HasPrefix(trimmed, "#") {
			flushText()
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}

		rest := trimmed
		for _, m := range imageRefPattern.FindAllStringSubmatch(trimmed, -1) {
			imageIdx++
			out.Blocks = append(out.Blocks, Block{
				Type:  BlockImage,
				Index: imageIdx,
				Title: m[1],
				URL:   m[2],
			})
			rest = strings.Replace(rest, m[0], "", 1)
		}
		textBuf = append(textBuf, rest)
	}
	flushTable()
	flushText()

	out.Metadata = map[string]any{}
	return out, nil
}

// splitTableRow splits a pipe-delimited row into trimmed cells. Separator
// rows made of dashes are recognized but dropped; RenderTable re-adds
// its own.
func splitTableRow(line string) ([]string, bool) {
	inner := strings.Trim(line, "|")
	parts := strings.Split(inner, "|")
	cells := make([]string, 0, len(parts))
	separator := true
	for _, part := range parts {
		c := strings.TrimSpace(part)
		if strings.Trim(c, ":-") != "" {
			separator = false
		}
		cells = append(cells, c)
	}
	if separator {
		return nil, false
	}
	return cells, true
}
