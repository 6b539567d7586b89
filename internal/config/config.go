// Package config provides configuration loading for ragpipe.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/ragpipe/internal/logging"
	"github.com/fyrsmithlabs/ragpipe/internal/telemetry"
)

// Config is the root configuration for the pipeline.
type Config struct {
	Logging     logging.Config    `koanf:"logging"`
	Telemetry   telemetry.Config  `koanf:"telemetry"`
	Storage     StorageConfig     `koanf:"storage"`
	Loader      LoaderConfig      `koanf:"loader"`
	Chunking    ChunkingConfig    `koanf:"chunking"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Search      SearchConfig      `koanf:"search"`
}

// StorageConfig holds the stage directories for persisted records.
type StorageConfig struct {
	LoadedDir   string `koanf:"loaded_dir"`
	ChunkedDir  string `koanf:"chunked_dir"`
	EmbeddedDir string `koanf:"embedded_dir"`
	ResultsDir  string `koanf:"results_dir"`
}

// LoaderConfig holds document loader defaults.
type LoaderConfig struct {
	// Method is the default extraction method: text, layout, ocr,
	// elements, or tables.
	Method string `koanf:"method"`

	// QualityCheck enables the informational quality assessment per load.
	QualityCheck bool `koanf:"quality_check"`
}

// ChunkingConfig holds chunker defaults.
type ChunkingConfig struct {
	Method       string `koanf:"method"`
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`

	// KeepSeparator keeps split separators attached to chunk text for
	// the document-scoped strategies. Defaults to true; a pointer so an
	// explicit false in the config survives defaulting.
	KeepSeparator *bool `koanf:"keep_separator"`
}

// EmbeddingConfig holds embedding gateway configuration.
type EmbeddingConfig struct {
	// Provider is fastembed, openai, or bedrock.
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`

	// CacheDir is the local model cache (fastembed only).
	CacheDir string `koanf:"cache_dir"`

	// APIKey authenticates hosted providers.
	APIKey Secret `koanf:"api_key"`

	// Region selects the cloud region (bedrock only).
	Region string `koanf:"region"`
}

// QdrantConfig holds the Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
}

// ChromemConfig holds the embedded chromem-go store settings.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// VectorStoreConfig selects and configures the vector store provider.
type VectorStoreConfig struct {
	// Provider is qdrant or chromem.
	Provider string `koanf:"provider"`

	// IndexMode is flat, ivf_flat, ivf_sq8, or hnsw.
	IndexMode string `koanf:"index_mode"`

	Qdrant  QdrantConfig  `koanf:"qdrant"`
	Chromem ChromemConfig `koanf:"chromem"`
}

// SearchConfig holds search engine defaults.
type SearchConfig struct {
	TopK           int     `koanf:"top_k"`
	ScoreThreshold float64 `koanf:"score_threshold"`
	MinWordCount   int     `koanf:"min_word_count"`
	SaveResults    bool    `koanf:"save_results"`
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(cfg *Config) {
	cfg.Logging.ApplyDefaults()
	cfg.Telemetry.ApplyDefaults()

	if cfg.Storage.LoadedDir == "" {
		cfg.Storage.LoadedDir = "data/loaded-docs"
	}
	if cfg.Storage.ChunkedDir == "" {
		cfg.Storage.ChunkedDir = "data/chunked-docs"
	}
	if cfg.Storage.EmbeddedDir == "" {
		cfg.Storage.EmbeddedDir = "data/embedded-docs"
	}
	if cfg.Storage.ResultsDir == "" {
		cfg.Storage.ResultsDir = "data/search-results"
	}

	if cfg.Loader.Method == "" {
		cfg.Loader.Method = "text"
	}

	if cfg.Chunking.Method == "" {
		cfg.Chunking.Method = "by_pages"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Chunking.KeepSeparator == nil {
		keep := true
		cfg.Chunking.KeepSeparator = &keep
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "fastembed"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.IndexMode == "" {
		cfg.VectorStore.IndexMode = "hnsw"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "data/vector-store"
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 3
	}
	if cfg.Search.ScoreThreshold == 0 {
		cfg.Search.ScoreThreshold = 0.7
	}
	if cfg.Search.MinWordCount == 0 {
		cfg.Search.MinWordCount = 20
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	switch c.Embedding.Provider {
	case "fastembed", "openai", "bedrock":
	default:
		return fmt.Errorf("embedding: unsupported provider %q", c.Embedding.Provider)
	}
	switch c.VectorStore.Provider {
	case "qdrant", "chromem":
	default:
		return fmt.Errorf("vectorstore: unsupported provider %q", c.VectorStore.Provider)
	}
	switch c.VectorStore.IndexMode {
	case "flat", "ivf_flat", "ivf_sq8", "hnsw":
	default:
		return fmt.Errorf("vectorstore: unsupported index mode %q", c.VectorStore.IndexMode)
	}
	if c.VectorStore.Qdrant.Port <= 0 || c.VectorStore.Qdrant.Port > 65535 {
		return fmt.Errorf("vectorstore: invalid qdrant port %d", c.VectorStore.Qdrant.Port)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search: top_k must be positive, got %d", c.Search.TopK)
	}
	return nil
}
