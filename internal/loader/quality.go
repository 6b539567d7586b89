package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// AssessQuality computes an informational quality report for a PDF: page
// count, the ratio of text-bearing pages, the ratio of pages carrying
// image objects, whether the document looks like it needs OCR (no text
// but images present), and the maximum page area. It never blocks
// ingestion; callers treat a failed assessment as a warning.
func AssessQuality(path string) (*pipeline.QualityReport, error) {
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

	report := &pipeline.QualityReport{
		FileSize:  info.Size(),
		PageCount: reader.NumPage(),
	}

	textPages, imagePages := 0, 0
	for i := 1; i <= report.PageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		hasText := false
		if text, err := page.GetPlainText(nil); err == nil && strings.TrimSpace(text) != "" {
			hasText = true
			textPages++
		}

		if pageHasImages(page) {
			imagePages++
			if !hasText {
				report.OCRRequired = true
			}
		}

		if area := pageArea(page); area > report.MaxResolution {
			report.MaxResolution = area
		}
	}

	if report.PageCount > 0 {
		report.TextRatio = float64(textPages) / float64(report.PageCount)
		report.ImageRatio = float64(imagePages) / float64(report.PageCount)
	}
	return report, nil
}

// pageHasImages checks the page's XObject resources for image subtypes.
func pageHasImages(page pdf.Page) bool {
	xobjects := page.Resources().Key("XObject")
	if xobjects.IsNull() {
		return false
	}
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}

// pageArea returns the MediaBox area in PDF points squared.
func pageArea(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() != 4 {
		return 0
	}
	width := box.Index(2).Float64() - box.Index(0).Float64()
	height := box.Index(3).Float64() - box.Index(1).Float64()
	if width < 0 || height < 0 {
		return 0
	}
	return width * height
}
