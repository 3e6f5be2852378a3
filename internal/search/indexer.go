package search

import (
	"context"
	"fmt"
	"log/slog"
)

// Embedder turns a text into its fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BulkWriter is the slice of the search client the indexer needs.
type BulkWriter interface {
	Bulk(ctx context.Context, records []Record) (int, int, error)
}

// Indexer embeds records and writes them to the vector index in bounded
// batches. Embedding failures are fatal (the batch job is simply re-run);
// per-record bulk failures are counted and logged, not retried.
type Indexer struct {
	writer    BulkWriter
	embedder  Embedder
	index     string
	batchSize int
	log       *slog.Logger
}

func NewIndexer(writer BulkWriter, embedder Embedder, index string, batchSize int, log *slog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Indexer{
		writer:    writer,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		log:       log,
	}
}

// Input is one record to embed and index.
type Input struct {
	ID      int
	Chapter string
	Text    string
}

// IndexAll embeds every input and flushes batches of batchSize (and the
// final partial batch). It returns the total success and failure counts
// reported by the bulk upserts.
func (ix *Indexer) IndexAll(ctx context.Context, inputs []Input) (int, int, error) {
	var batch []Record
	totalSuccess, totalFailed := 0, 0

	for i, in := range inputs {
		vec, err := ix.embedder.Embed(ctx, in.Text)
		if err != nil {
			return totalSuccess, totalFailed, fmt.Errorf("embed record %d: %w", in.ID, err)
		}
		batch = append(batch, Record{
			Index:    ix.index,
			ID:       in.ID,
			Chapter:  in.Chapter,
			Document: in.Text,
			Vector:   vec,
		})

		if len(batch) >= ix.batchSize || i == len(inputs)-1 {
			success, failed, err := ix.writer.Bulk(ctx, batch)
			if err != nil {
				return totalSuccess, totalFailed, fmt.Errorf("bulk flush: %w", err)
			}
			ix.log.Info("bulk flush", "index", ix.index, "saved", success, "failed", failed)
			totalSuccess += success
			totalFailed += failed
			batch = batch[:0]
		}
	}
	return totalSuccess, totalFailed, nil
}
