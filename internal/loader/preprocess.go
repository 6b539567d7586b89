package loader

import "fmt"

// PreprocessOptions toggles the in-place preprocessing steps applied to a
// source file before extraction. Each step is independent.
type PreprocessOptions struct {
	// RotateDegrees rotates every page when non-zero.
	RotateDegrees int `json:"rotate_degrees,omitempty"`

	// Compress rewrites the file with stream compression.
	Compress bool `json:"compress,omitempty"`

	// Clean strips annotations and embedded junk.
	Clean bool `json:"clean,omitempty"`

	// Watermark stamps the given text on every page when non-empty.
	Watermark string `json:"watermark,omitempty"`
}

// Preprocessor mutates a source file in place. Implementations wrap an
// external PDF toolkit; the pipeline only orchestrates the steps.
type Preprocessor interface {
	Rotate(path string, degrees int) error
	Compress(path string) error
	Clean(path string) error
	Watermark(path, text string) error
}

// applyPreprocess runs the enabled steps in order. Any failure aborts:
// downstream pagination depends on the preprocessed file, so a half
// preprocessed document must never reach extraction.
func applyPreprocess(pre Preprocessor, path string, opts PreprocessOptions) error {
	if opts.RotateDegrees != 0 {
		if err := pre.Rotate(path, opts.RotateDegrees); err != nil {
			return fmt.Errorf("rotate: %w", err)
		}
	}
	if opts.Compress {
		if err := pre.Compress(path); err != nil {
			return fmt.Errorf("compress: %w", err)
		}
	}
	if opts.Clean {
		if err := pre.Clean(path); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}
	if opts.Watermark != "" {
		if err := pre.Watermark(path, opts.Watermark); err != nil {
			return fmt.Errorf("watermark: %w", err)
		}
	}
	return nil
}
