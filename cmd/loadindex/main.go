// Command loadindex bulk-loads pre-segmented chunk files into the vector
// index. It exists for backfills and local experiments: point it at a
// directory of "{order}_{title}.txt" files produced by the ingest pipeline
// and it embeds and indexes them without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tlhuang/manualrag/internal/config"
	"github.com/tlhuang/manualrag/internal/llm"
	"github.com/tlhuang/manualrag/internal/search"
)

var (
	indexName string
	chunkDir  string
	recreate  bool
	earlyStop int
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "loadindex",
	Short: "Bulk-load chunk files into the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVar(&indexName, "index", "", "Target index (defaults to DEFAULT_INDEX)")
	rootCmd.Flags().StringVar(&chunkDir, "dir", "", "Directory of {order}_{title}.txt chunk files")
	rootCmd.Flags().BoolVar(&recreate, "recreate", false, "Drop and recreate the index before loading")
	rootCmd.Flags().IntVar(&earlyStop, "early-stop", 0, "Stop after this many files (0 = all)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Log each file as it is read")
	rootCmd.MarkFlagRequired("dir")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer) error {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := config.Load()
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if indexName == "" {
		indexName = cfg.DefaultIndex
	}

	inputs, err := readChunks(chunkDir, earlyStop, log)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no chunk files found in %s", chunkDir)
	}

	client := search.NewClient(cfg.OpenSearchURL, cfg.OpenSearchUsername, cfg.OpenSearchPassword)
	defer client.Close()
	embedder := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)

	if err := client.EnsureIndex(ctx, indexName, cfg.EmbeddingDimension, recreate); err != nil {
		return fmt.Errorf("ensure index %s: %w", indexName, err)
	}

	indexer := search.NewIndexer(client, embedder, indexName, cfg.BulkBatchSize, log)
	indexed, failed, err := indexer.IndexAll(ctx, inputs)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "indexed %d chunks into %s (%d failed)\n", indexed, indexName, failed)
	if failed > 0 {
		return fmt.Errorf("%d chunks failed to index", failed)
	}
	return nil
}

// readChunks loads "{order}_{title}.txt" files from dir, sorted by name.
// Files that do not match the pattern are skipped with a warning.
func readChunks(dir string, limit int, log *slog.Logger) ([]search.Input, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var inputs []search.Input
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if limit > 0 && len(inputs) >= limit {
			break
		}

		order, title, ok := parseChunkName(e.Name())
		if !ok {
			log.Warn("skipping unrecognized file", "name", e.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		if verbose {
			log.Info("read chunk", "order", order, "title", title, "bytes", len(data))
		}
		inputs = append(inputs, search.Input{ID: order, Chapter: title, Text: string(data)})
	}
	return inputs, nil
}

// parseChunkName splits "12_BatteryCare.txt" into (12, "BatteryCare").
func parseChunkName(name string) (int, string, bool) {
	base := strings.TrimSuffix(name, ".txt")
	idx := strings.Index(base, "_")
	if idx <= 0 {
		return 0, "", false
	}
	order, err := strconv.Atoi(base[:idx])
	if err != nil {
		return 0, "", false
	}
	return order, base[idx+1:], true
}
