// Package main implements the ragpipe CLI: load, parse, chunk, embed,
// index, and search documents from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragpipe/internal/config"
	"github.com/fyrsmithlabs/ragpipe/internal/logging"
	"github.com/fyrsmithlabs/ragpipe/internal/telemetry"
)

var (
	configPath string
	version    = "dev"
	tel        *telemetry.Telemetry
)

func main() {
	err := rootCmd.Execute()
	if tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := tel.Shutdown(ctx); serr != nil {
			fmt.Fprintln(os.Stderr, "telemetry shutdown:", serr)
		}
		cancel()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Document ingestion and retrieval pipeline",
	Long: `ragpipe turns source documents into searchable vector collections.

The pipeline stages are separate commands that hand off through JSON
files: load extracts pages, chunk splits them, embed generates vectors,
index stores them, and search queries a collection.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(collectionsCmd)
}

// setup loads configuration and builds the logger every command shares.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	t, err := telemetry.New(context.Background(), cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry init failed", zap.Error(err))
	} else {
		tel = t
	}
	return cfg, logger, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
