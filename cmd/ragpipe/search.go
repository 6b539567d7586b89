package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragpipe/internal/pipeline"
	"github.com/fyrsmithlabs/ragpipe/internal/search"
	"github.com/fyrsmithlabs/ragpipe/internal/vectorstore"
)

var (
	searchTopK      int
	searchThreshold float32
	searchMinWords  int
)

var searchCmd = &cobra.Command{
	Use:   "search <collection> <query>",
	Short: "Query a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := vectorstore.New(cfg.VectorStore, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		var sink search.ResultSink
		if cfg.Search.SaveResults {
			results, err := pipeline.NewStore(cfg.Storage.ResultsDir, logger)
			if err != nil {
				return err
			}
			sink = results
		}

		engine := search.New(store, cfg.Search, cfg.Embedding, sink, logger)
		set, err := engine.Search(cmd.Context(), search.Request{
			CollectionID: args[0],
			Query:        args[1],
			TopK:         searchTopK,
			Threshold:    searchThreshold,
			MinWordCount: searchMinWords,
		})
		if err != nil {
			return err
		}
		return printJSON(set)
	},
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage vector collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := vectorstore.New(cfg.VectorStore, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var collectionsInfoCmd = &cobra.Command{
	Use:   "info <collection>",
	Short: "Describe a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := vectorstore.New(cfg.VectorStore, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		info, err := store.GetCollectionInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <collection>",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := vectorstore.New(cfg.VectorStore, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteCollection(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "maximum results to return")
	searchCmd.Flags().Float32Var(&searchThreshold, "threshold", 0, "minimum similarity score; negative floors are accepted, 0 uses the configured default")
	searchCmd.Flags().IntVar(&searchMinWords, "min-words", 0, "minimum word count per result (-1 disables)")

	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsInfoCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
}
