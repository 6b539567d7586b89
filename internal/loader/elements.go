package loader

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// elementLoader is the structure-aware method: it partitions each page's
// text into typed elements (titles vs narrative blocks) and emits one
// page record per element, tagged with its category. Downstream stages
// see the same PageRecord shape as every other method; the category only
// rides along in metadata.
type elementLoader struct {
	logger *zap.Logger
	inner  Loader
}

func (l *elementLoader) Load(ctx context.Context, path string) (*pipeline.LoadResult, error) {
	base, err := l.inner.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	var pages []pipeline.PageRecord
	for _, page := range base.Pages {
		for _, elem := range partitionElements(page.Text) {
			pages = append(pages, pipeline.PageRecord{
				Page: page.Page,
				Text: elem.text,
				Metadata: map[string]any{
					"element_type": elem.category,
				},
			})
		}
	}

	if err := validatePages(pages); err != nil {
		return nil, err
	}
	return &pipeline.LoadResult{Pages: pages, TotalPages: base.TotalPages}, nil
}

type element struct {
	category string
	text     string
}

// partitionElements splits page text into title and narrative elements.
// Paragraphs are blank-line delimited; a short line without terminal
// punctuation that is mostly upper-case or numbered is treated as a title.
func partitionElements(text string) []element {
	var elems []element
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		category := "NarrativeText"
		if looksLikeTitle(para) {
			category = "Title"
		}
		elems = append(elems, element{category: category, text: para})
	}
	return elems
}

func looksLikeTitle(s string) bool {
	if strings.Contains(s, "\n") || len(s) > 120 {
		return false
	}
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, ",") {
		return false
	}
	// Numbered headings: "3.2 Results"
	if r := rune(s[0]); unicode.IsDigit(r) && strings.Contains(s, " ") {
		return true
	}
	letters, uppers := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	return letters > 0 && float64(uppers)/float64(letters) > 0.6
}
