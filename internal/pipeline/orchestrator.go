package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tlhuang/manualrag/internal/config"
	"github.com/tlhuang/manualrag/internal/layout"
	"github.com/tlhuang/manualrag/internal/search"
	"github.com/tlhuang/manualrag/internal/storage"
)

// Orchestrator manages the manual ingestion pipeline.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewOrchestrator creates the pipeline. Start launches its workers.
func NewOrchestrator(cfg config.Config, store storage.Store, captioner Captioner, searchClient *search.Client, embedder search.Embedder, log *slog.Logger) *Orchestrator {
	jobs := NewJobStore(cfg.JobTTL)
	buckets := Buckets{
		Markdown:  cfg.MarkdownBucket,
		Captioned: cfg.CaptionedBucket,
		Images:    cfg.ImageBucket,
		Chunks:    cfg.ChunkBucket,
	}
	newIndexer := func(index string) ChunkIndexer {
		return search.NewIndexer(searchClient, embedder, index, cfg.BulkBatchSize, log)
	}
	worker := NewWorker(store, buckets, cfg.ImageBaseURL, captioner, searchClient,
		newIndexer, layoutConfig(cfg), cfg.EmbeddingDimension, jobs, log)

	return &Orchestrator{
		jobs:   jobs,
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: worker,
		log:    log,
		cfg:    cfg,
	}
}

func layoutConfig(cfg config.Config) layout.Config {
	return layout.Config{
		TitleSize:       cfg.TitleSize,
		SubtitleSize:    cfg.SubtitleSize,
		SubsubtitleSize: cfg.SubsubtitleSize,
		LineTolerance:   cfg.LineTolerance,
		MinImageWidth:   cfg.MinImageWidth,
		MinImageHeight:  cfg.MinImageHeight,
		MergeTolerance:  cfg.LineTolerance,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Submissions racing with Stop
// are rejected rather than sent to the closed queue.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		job.SetStatus(StatusFailed, "shutting_down")
		return fmt.Errorf("pipeline is shutting down")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
