package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Store persists pipeline records as self-describing JSON files, one
// directory per stage. Filenames embed the stage inputs and a timestamp so
// successive runs never overwrite each other.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: store directory required", ErrEmptyInput)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// SaveDocument writes a chunked document. The filename is derived from the
// source filename, the chunking method, and a timestamp.
func (s *Store) SaveDocument(doc *Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	name := fmt.Sprintf("%s_%s_%s.json", base, doc.ChunkingMethod, doc.Timestamp.Format("20060102150405"))
	return s.writeJSON(name, doc)
}

// LoadDocument reads a document back by file name and revalidates it.
// A malformed record is rejected as ErrInvalidRecord.
func (s *Store) LoadDocument(name string) (*Document, error) {
	var doc Document
	if err := s.readJSON(name, &doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveBatch writes an embedding batch after validating it.
func (s *Store) SaveBatch(batch *EmbeddingBatch) (string, error) {
	if err := batch.Validate(); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(batch.Filename, filepath.Ext(batch.Filename))
	name := fmt.Sprintf("%s_%s_%s.json", base, batch.EmbeddingProvider, batch.CreatedAt.Format("20060102150405"))
	return s.writeJSON(name, batch)
}

// LoadBatch reads an embedding batch back by file name. Validation happens
// on load as well, so an edited or truncated file is rejected before it
// reaches the vector index.
func (s *Store) LoadBatch(name string) (*EmbeddingBatch, error) {
	var batch EmbeddingBatch
	if err := s.readJSON(name, &batch); err != nil {
		return nil, err
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return &batch, nil
}

// SaveResultSet writes a search result set under a unique name keyed by
// collection and timestamp.
func (s *Store) SaveResultSet(rs *ResultSet) (string, error) {
	if rs.Query == "" || rs.CollectionID == "" {
		return "", fmt.Errorf("%w: result set requires query and collection id", ErrEmptyInput)
	}
	if rs.Timestamp.IsZero() {
		rs.Timestamp = time.Now()
	}
	name := fmt.Sprintf("search_%s_%s.json", rs.CollectionID, rs.Timestamp.Format("20060102150405"))
	return s.writeJSON(name, rs)
}

// List returns the JSON file names in the store, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a stored record by file name.
func (s *Store) Delete(name string) error {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) (string, error) {
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Debug("record persisted", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

func (s *Store) readJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
	}
	return nil
}
