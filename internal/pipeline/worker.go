package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tlhuang/manualrag/internal/convert"
	"github.com/tlhuang/manualrag/internal/layout"
	"github.com/tlhuang/manualrag/internal/pdfreader"
	"github.com/tlhuang/manualrag/internal/search"
	"github.com/tlhuang/manualrag/internal/segment"
	"github.com/tlhuang/manualrag/internal/storage"
)

// Captioner rewrites bare image references into captioned ones.
type Captioner interface {
	Rewrite(ctx context.Context, doc string) (string, error)
}

// IndexEnsurer prepares the vector index before writes.
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context, name string, dimension int, recreate bool) error
}

// ChunkIndexer embeds and bulk-writes chunk records.
type ChunkIndexer interface {
	IndexAll(ctx context.Context, inputs []search.Input) (int, int, error)
}

// Buckets names the blob storage buckets the worker writes to.
type Buckets struct {
	Markdown  string
	Captioned string
	Images    string
	Chunks    string
}

// Worker processes a single manual ingestion job end to end: convert to
// markdown, caption images, segment into chunks, embed and index.
type Worker struct {
	store        storage.Store
	buckets      Buckets
	imageBaseURL string
	captioner    Captioner
	ensurer      IndexEnsurer
	newIndexer   func(index string) ChunkIndexer
	layoutCfg    layout.Config
	dimension    int
	jobs         *JobStore
	log          *slog.Logger
}

func NewWorker(store storage.Store, buckets Buckets, imageBaseURL string, captioner Captioner, ensurer IndexEnsurer, newIndexer func(index string) ChunkIndexer, layoutCfg layout.Config, dimension int, jobs *JobStore, log *slog.Logger) *Worker {
	return &Worker{
		store:        store,
		buckets:      buckets,
		imageBaseURL: imageBaseURL,
		captioner:    captioner,
		ensurer:      ensurer,
		newIndexer:   newIndexer,
		layoutCfg:    layoutCfg,
		dimension:    dimension,
		jobs:         jobs,
		log:          log,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "document", job.Document)

	// Phase 1: Convert to markdown.
	job.SetStatus(StatusConverting, "convert")
	markdown, err := w.convertFile(ctx, job)
	if err != nil {
		log.Error("convert failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "convert")
		return
	}
	if strings.TrimSpace(markdown) == "" {
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "convert")
		return
	}

	// Phase 1.5: Dedup check on the converted text.
	job.ContentHash = ContentHashHex([]byte(markdown))
	if existing, first := w.jobs.MarkHash(job.ContentHash, job.Document); !first {
		log.Info("duplicate document, skipping", "existing_document", existing)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	mdKey := job.Document + ".md"
	if err := w.store.Put(ctx, w.buckets.Markdown, mdKey, []byte(markdown)); err != nil {
		log.Error("markdown write failed", "error", err)
		job.AddError(fmt.Sprintf("store markdown: %s", err))
		job.SetStatus(StatusFailed, "convert")
		return
	}

	// Phase 2: Caption images.
	job.SetStatus(StatusCaptioning, "caption")
	captioned, err := w.captioner.Rewrite(ctx, markdown)
	if err != nil {
		log.Error("caption failed", "error", err)
		job.AddError(fmt.Sprintf("caption: %s", err))
		job.SetStatus(StatusFailed, "caption")
		return
	}
	if err := w.store.Put(ctx, w.buckets.Captioned, mdKey, []byte(captioned)); err != nil {
		log.Error("captioned write failed", "error", err)
		job.AddError(fmt.Sprintf("store captioned: %s", err))
		job.SetStatus(StatusFailed, "caption")
		return
	}

	// Phase 3: Segment into chunks.
	job.SetStatus(StatusSegmenting, "segment")
	chunks := segment.Split(job.Document, captioned)
	job.SetChunks(len(chunks))
	log.Info("segmented document", "chunks", len(chunks))
	if len(chunks) == 0 {
		job.AddError("no substantive chunks")
		job.SetStatus(StatusFailed, "segment")
		return
	}
	for _, c := range chunks {
		key := job.Document + "/" + c.Key()
		if err := w.store.Put(ctx, w.buckets.Chunks, key, []byte(c.Body)); err != nil {
			log.Error("chunk write failed", "key", key, "error", err)
			job.AddError(fmt.Sprintf("store chunk %s: %s", key, err))
			job.SetStatus(StatusFailed, "segment")
			return
		}
	}

	// Phase 4: Embed and index.
	job.SetStatus(StatusIndexing, "index")
	if err := w.ensurer.EnsureIndex(ctx, job.Index, w.dimension, false); err != nil {
		log.Error("ensure index failed", "index", job.Index, "error", err)
		job.AddError(fmt.Sprintf("ensure index: %s", err))
		job.SetStatus(StatusFailed, "index")
		return
	}
	inputs := make([]search.Input, len(chunks))
	for i, c := range chunks {
		inputs[i] = search.Input{ID: c.Order, Chapter: c.Title, Text: c.Body}
	}
	indexed, failed, err := w.newIndexer(job.Index).IndexAll(ctx, inputs)
	job.AddIndexed(indexed, failed)
	if err != nil {
		log.Error("indexing failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "index")
		return
	}
	log.Info("indexing complete", "indexed", indexed, "failed", failed)

	if failed > 0 {
		job.SetStatus(StatusPartial, "done")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}

// SupportedExtension reports whether the worker knows how to convert the file.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".html", ".htm", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// convertFile renders the uploaded file to markdown based on its extension.
func (w *Worker) convertFile(ctx context.Context, job *Job) (string, error) {
	data := job.FileData()
	switch strings.ToLower(filepath.Ext(job.Filename)) {
	case ".pdf":
		return w.convertPDF(ctx, job, data)
	case ".docx":
		return convert.DOCX(data)
	case ".html", ".htm":
		return convert.HTML(data)
	case ".md", ".markdown", ".txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", job.Filename)
	}
}

func (w *Worker) convertPDF(ctx context.Context, job *Job, data []byte) (string, error) {
	pages, err := pdfreader.Read(data)
	if err != nil {
		return "", err
	}
	job.SetPages(len(pages))

	sink := &imageSink{
		store:   w.store,
		bucket:  w.buckets.Images,
		baseURL: w.imageBaseURL,
		prefix:  job.Document,
		job:     job,
	}
	asm := layout.NewAssembler(w.layoutCfg.MergeTolerance)
	for _, page := range pages {
		spans, err := layout.ExtractPage(ctx, page, sink, w.layoutCfg)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page.Number, err)
		}
		asm.AddPage(spans)
	}
	return asm.Markdown(), nil
}
