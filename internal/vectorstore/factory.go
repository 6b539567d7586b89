package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
)

// New creates the store named by the configuration.
func New(cfg config.VectorStoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, cfg.IndexMode, logger)
	case "chromem", "":
		return NewChromemStore(cfg.Chromem, logger)
	default:
		return nil, fmt.Errorf("%w: vector store provider %q", pipeline.ErrUnsupportedMethod, cfg.Provider)
	}
}
