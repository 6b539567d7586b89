package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// docx XML subset: only the elements the extractor walks.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Props docxParaProps `xml:"pPr"`
	Runs  []docxRun     `xml:"r"`
}

type docxParaProps struct {
	Style docxStyle `xml:"pStyle"`
}

type docxStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

// parseDocx extracts paragraphs and tables from a Word document. A docx
// file is a zip archive; the body lives in word/document.xml. Heading
// styles become block titles, tables are rendered as markdown grids.
func (p *Parser) parseDocx(content []byte) (*Output, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening docx archive: %w", err)
	}

	var doc docxDocument
	found := false
	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening document.xml: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading document.xml: %w", err)
		}
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing document.xml: %v", pipeline.ErrInvalidRecord, err)
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("%w: word/document.xml missing", pipeline.ErrInvalidRecord)
	}

	out := &Output{Metadata: map[string]any{}}

	var title string
	var textBuf []string
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

	for _, para := range doc.Body.Paragraphs {
		text := paragraphText(para)
		if strings.HasPrefix(para.Props.Style.Val, "Heading") || para.Props.Style.Val == "Title" {
			flushText()
			title = text
			continue
		}
		if text != "" {
			textBuf = append(textBuf, text)
		}
	}
	flushText()

	for _, tbl := range doc.Body.Tables {
		rows := make([][]string, 0, len(tbl.Rows))
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, c := range row.Cells {
				var parts []string
				for _, para := range c.Paragraphs {
					if t := paragraphText(para); t != "" {
						parts = append(parts, t)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			rows = append(rows, cells)
		}
		if len(rows) > 0 {
			out.Blocks = append(out.Blocks, Block{
				Type:    BlockTable,
				Content: RenderTable(rows),
			})
		}
	}

	if len(out.Blocks) == 0 {
		return nil, fmt.Errorf("%w: document has no extractable content", pipeline.ErrEmptyInput)
	}
	return out, nil
}

func paragraphText(p docxParagraph) string {
	var sb strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Texts {
			sb.WriteString(t)
		}
	}
	return strings.TrimSpace(sb.String())
}
