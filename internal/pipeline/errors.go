package pipeline

import "errors"

// Sentinel errors shared across pipeline stages. Stages wrap these with
// fmt.Errorf("%w: ...") so callers can classify failures with errors.Is.
var (
	// ErrUnsupportedMethod indicates an unknown method, provider, or file
	// type. A caller mistake; never retried.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrInvalidRecord indicates a malformed or incomplete persisted record.
	// Rejected before any store is mutated.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyInput indicates empty or missing required input, such as a
	// chunk request with no pages.
	ErrEmptyInput = errors.New("empty input")

	// ErrTransient indicates a transient provider or network failure that
	// the caller may retry.
	ErrTransient = errors.New("transient failure")

	// ErrFatal indicates an irrecoverable condition: an empty collection,
	// missing credentials, or a schema mismatch.
	ErrFatal = errors.New("fatal failure")
)
