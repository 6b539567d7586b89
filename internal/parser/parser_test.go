package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

func TestParse_UnsupportedFileType(t *testing.T) {
	p := New(zap.NewNop(), nil)

	_, err := p.Parse(context.Background(), []byte("x"), "rtf", "all_text", nil)
	require.ErrorIs(t, err, pipeline.ErrUnsupportedMethod)
}

func TestParse_UnsupportedPDFMethod(t *testing.T) {
	p := New(zap.NewNop(), nil)

	_, err := p.Parse(context.Background(), nil, "pdf", "extract_everything", nil)
	require.ErrorIs(t, err, pipeline.ErrUnsupportedMethod)
}

func TestParseMarkdown(t *testing.T) {
	src := `# Intro

Some opening text.
![diagram](images/arch.png)

## Data

| Name | Count |
| ---- | ----- |
| a    | 1     |
| b    | 2     |

Closing words.
`
	p := New(zap.NewNop(), nil)
	out, err := p.Parse(context.Background(), []byte(src), "markdown", "", map[string]any{"filename": "doc.md"})
	require.NoError(t, err)

	var texts, images, tables []Block
	for _, b := range out.Blocks {
		switch b.Type {
		case BlockText:
			texts = append(texts, b)
		case BlockImage:
			images = append(images, b)
		case BlockTable:
			tables = append(tables, b)
		}
	}

	require.Len(t, images, 1)
	assert.Equal(t, "diagram", images[0].Title)
	assert.Equal(t, "images/arch.png", images[0].URL)

	require.Len(t, tables, 1)
	assert.Equal(t, "Data", tables[0].Title)
	assert.Contains(t, tables[0].Content, "| Name | Count |")
	assert.Contains(t, tables[0].Content, "| --- | --- |")
	assert.Contains(t, tables[0].Content, "| b | 2 |")

	require.NotEmpty(t, texts)
	assert.Equal(t, "Intro", texts[0].Title)
	assert.Contains(t, texts[0].Content, "Some opening text.")

	assert.Equal(t, "doc.md", out.Metadata["filename"])
	assert.Equal(t, "markdown", out.Metadata["file_type"])
}

func TestParseMarkdown_Empty(t *testing.T) {
	p := New(zap.NewNop(), nil)

	_, err := p.Parse(context.Background(), []byte("  \n\t"), "markdown", "", nil)
	require.ErrorIs(t, err, pipeline.ErrEmptyInput)
}

func TestSplitTableRow(t *testing.T) {
	cells, ok := splitTableRow("| a | b | c |")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, cells)

	_, ok = splitTableRow("| --- | :---: |")
	assert.False(t, ok, "separator rows are dropped")
}

func TestRenderTable(t *testing.T) {
	got := RenderTable([][]string{
		{"h1", "h2"},
		{"a"},
		{"b", "c", "d"},
	})
	want := "| h1 | h2 |  |\n| --- | --- | --- |\n| a |  |  |\n| b | c | d |"
	assert.Equal(t, want, got)

	assert.Empty(t, RenderTable(nil))
}

func TestParseDocx(t *testing.T) {
	const body = `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><pPr><pStyle val="Heading1"/></pPr><r><t>Overview</t></r></p>
    <p><r><t>First sentence.</t></r><r><t> Second sentence.</t></r></p>
    <tbl>
      <tr><tc><p><r><t>k</t></r></p></tc><tc><p><r><t>v</t></r></p></tc></tr>
      <tr><tc><p><r><t>one</t></r></p></tc><tc><p><r><t>1</t></r></p></tc></tr>
    </tbl>
  </body>
</document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	p := New(zap.NewNop(), nil)
	out, err := p.Parse(context.Background(), buf.Bytes(), "docx", "", nil)
	require.NoError(t, err)
	require.Len(t, out.Blocks, 2)

	assert.Equal(t, BlockText, out.Blocks[0].Type)
	assert.Equal(t, "Overview", out.Blocks[0].Title)
	assert.Equal(t, "First sentence. Second sentence.", out.Blocks[0].Content)

	assert.Equal(t, BlockTable, out.Blocks[1].Type)
	assert.Contains(t, out.Blocks[1].Content, "| one | 1 |")
}

func TestParseDocx_MissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	p := New(zap.NewNop(), nil)
	_, err = p.Parse(context.Background(), buf.Bytes(), "docx", "", nil)
	require.ErrorIs(t, err, pipeline.ErrInvalidRecord)
}

func TestParseExcel(t *testing.T) {
	book := excelize.NewFile()
	require.NoError(t, book.SetSheetName("Sheet1", "Inventory"))
	require.NoError(t, book.SetSheetRow("Inventory", "A1", &[]any{"item", "qty"}))
	require.NoError(t, book.SetSheetRow("Inventory", "A2", &[]any{"bolt", 40}))

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	p := New(zap.NewNop(), nil)
	out, err := p.Parse(context.Background(), buf.Bytes(), "excel", "", nil)
	require.NoError(t, err)
	require.Len(t, out.Blocks, 1)

	block := out.Blocks[0]
	assert.Equal(t, BlockTable, block.Type)
	assert.Equal(t, "Inventory", block.Title)
	assert.Contains(t, block.Content, "| item | qty |")
	assert.Contains(t, block.Content, "| bolt | 40 |")
}
