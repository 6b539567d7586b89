// Package ocr defines the abstract OCR capability consumed by the loader
// and parser. The pipeline never bundles an OCR engine; deployments plug
// one in behind this interface.
package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable indicates no OCR backend is installed or reachable.
var ErrUnavailable = errors.New("ocr backend unavailable")

// Backend converts images to text. Implementations wrap an external
// engine (tesseract, a cloud vision API) and are expected to be safe for
// concurrent use.
type Backend interface {
	// Available reports whether the backend can serve requests. Callers
	// use this to degrade to a non-OCR extraction method instead of
	// failing the load.
	Available() bool

	// RecognizeImage extracts text from an encoded image.
	RecognizeImage(ctx context.Context, image []byte) (string, error)

	// RecognizePage rasterizes and recognizes one page of a document.
	// Pages are 1-based.
	RecognizePage(ctx context.Context, path string, page int) (string, error)
}

// Noop is the default backend when no OCR engine is configured. Available
// always returns false so callers take their fallback path.
type Noop struct{}

// Available reports false.
func (Noop) Available() bool { return false }

// RecognizeImage returns ErrUnavailable.
func (Noop) RecognizeImage(ctx context.Context, image []byte) (string, error) {
	return "", ErrUnavailable
}

// RecognizePage returns ErrUnavailable.
func (Noop) RecognizePage(ctx context.Context, path string, page int) (string, error) {
	return "", ErrUnavailable
}
