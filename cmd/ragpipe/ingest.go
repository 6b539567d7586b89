package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragpipe/internal/chunker"
	"github.com/fyrsmithlabs/ragpipe/internal/embeddings"
	"github.com/fyrsmithlabs/ragpipe/internal/loader"
	"github.com/fyrsmithlabs/ragpipe/internal/parser"
	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
	"github.com/fyrsmithlabs/ragpipe/internal/vectorstore"
)

var (
	loadMethod    string
	loadQuality   bool
	parseFileType string
	parseMethod   string
	chunkLoading  string
	chunkMethod   string
	chunkSize     int
	chunkOverlap  int
	chunkKeepSep  bool
	indexName     string
)

var loadCmd = &cobra.Command{
	Use:   "load <file.pdf>",
	Short: "Extract pages from a PDF and print them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		method := loadMethod
		if method == "" {
			method = cfg.Loader.Method
		}
		svc := loader.NewService(logger, nil, nil)
		result, err := svc.Load(cmd.Context(), args[0], method, loader.Options{
			QualityCheck: loadQuality || cfg.Loader.QualityCheck,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Extract typed content blocks from a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		fileType := parseFileType
		if fileType == "" {
			fileType = guessFileType(args[0])
		}
		p := parser.New(logger, nil)
		out, err := p.Parse(cmd.Context(), content, fileType, parseMethod, map[string]any{
			"filename": filepath.Base(args[0]),
		})
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <file.pdf>",
	Short: "Load and chunk a document, saving the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		loadingMethod := chunkLoading
		if loadingMethod == "" {
			loadingMethod = cfg.Loader.Method
		}
		method := chunkMethod
		if method == "" {
			method = cfg.Chunking.Method
		}
		size := chunkSize
		if size == 0 {
			size = cfg.Chunking.ChunkSize
		}
		overlap := chunkOverlap
		if overlap == 0 {
			overlap = cfg.Chunking.ChunkOverlap
		}
		keepSep := *cfg.Chunking.KeepSeparator
		if cmd.Flags().Changed("keep-separator") {
			keepSep = chunkKeepSep
		}

		svc := loader.NewService(logger, nil, nil)
		result, err := svc.Load(cmd.Context(), args[0], loadingMethod, loader.Options{})
		if err != nil {
			return err
		}

		doc, err := chunker.NewService(logger).Chunk(
			cmd.Context(),
			filepath.Base(args[0]),
			loadingMethod,
			result.Pages,
			method,
			chunker.Options{ChunkSize: size, Overlap: overlap, KeepSeparator: keepSep},
		)
		if err != nil {
			return err
		}

		store, err := pipeline.NewStore(cfg.Storage.ChunkedDir, logger)
		if err != nil {
			return err
		}
		path, err := store.SaveDocument(doc)
		if err != nil {
			return err
		}
		fmt.Printf("chunked %s: %d chunks over %d pages -> %s\n",
			doc.Filename, doc.TotalChunks, doc.TotalPages, path)
		return nil
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed <chunked.json>",
	Short: "Embed a chunked document, saving the vector batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		chunked, err := pipeline.NewStore(cfg.Storage.ChunkedDir, logger)
		if err != nil {
			return err
		}
		doc, err := chunked.LoadDocument(args[0])
		if err != nil {
			return err
		}

		provider, err := embeddings.NewProvider(cmd.Context(), cfg.Embedding, logger)
		if err != nil {
			return err
		}
		gateway := embeddings.NewGateway(provider, logger)
		defer gateway.Close()

		batch, err := gateway.EmbedDocument(cmd.Context(), doc)
		if err != nil {
			return err
		}

		embedded, err := pipeline.NewStore(cfg.Storage.EmbeddedDir, logger)
		if err != nil {
			return err
		}
		path, err := embedded.SaveBatch(batch)
		if err != nil {
			return err
		}
		fmt.Printf("embedded %s: %d vectors (dim %d, %s/%s) -> %s\n",
			batch.Filename, len(batch.Embeddings), batch.VectorDimension,
			batch.EmbeddingProvider, batch.EmbeddingModel, path)
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index <batch.json>",
	Short: "Index a vector batch into a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		embedded, err := pipeline.NewStore(cfg.Storage.EmbeddedDir, logger)
		if err != nil {
			return err
		}
		batch, err := embedded.LoadBatch(args[0])
		if err != nil {
			return err
		}

		store, err := vectorstore.New(cfg.VectorStore, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		name := indexName
		if name == "" {
			name = vectorstore.CollectionName(batch.Filename, batch.EmbeddingProvider, time.Now())
		} else {
			name = vectorstore.Sanitize(name)
		}

		count, err := store.CreateAndPopulate(cmd.Context(), name, batch)
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d vectors into %s\n", count, name)
		return nil
	},
}

// guessFileType maps a file extension onto a parser file type.
func guessFileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	case ".docx":
		return "docx"
	case ".xlsx", ".xlsm", ".xls":
		return "excel"
	default:
		return "pdf"
	}
}

func init() {
	loadCmd.Flags().StringVar(&loadMethod, "method", "", "extraction method (text, layout, ocr, elements, tables)")
	loadCmd.Flags().BoolVar(&loadQuality, "quality", false, "include a quality assessment")

	parseCmd.Flags().StringVar(&parseFileType, "file-type", "", "file type (pdf, markdown, docx, excel); inferred from the extension when unset")
	parseCmd.Flags().StringVar(&parseMethod, "method", "all_text", "pdf parsing method (all_text, extract_images, extract_tables)")

	chunkCmd.Flags().StringVar(&chunkLoading, "loading-method", "", "extraction method for the load stage")
	chunkCmd.Flags().StringVar(&chunkMethod, "method", "", "chunking method (by_pages, fixed_size, by_paragraphs, by_sentences, by_chars, by_words, by_markdown, by_html)")
	chunkCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk budget (characters, or words for by_words)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", 0, "overlap between adjacent chunks")
	chunkCmd.Flags().BoolVar(&chunkKeepSep, "keep-separator", true, "keep split separators attached to chunk text (document-scoped methods)")

	indexCmd.Flags().StringVar(&indexName, "collection", "", "collection name (derived from the batch when unset)")
}
