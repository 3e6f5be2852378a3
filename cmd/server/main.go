package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tlhuang/manualrag/internal/api"
	"github.com/tlhuang/manualrag/internal/caption"
	"github.com/tlhuang/manualrag/internal/config"
	"github.com/tlhuang/manualrag/internal/history"
	"github.com/tlhuang/manualrag/internal/llm"
	"github.com/tlhuang/manualrag/internal/pipeline"
	"github.com/tlhuang/manualrag/internal/query"
	"github.com/tlhuang/manualrag/internal/search"
	"github.com/tlhuang/manualrag/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	anthropic := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	openai := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
	searchClient := search.NewClient(cfg.OpenSearchURL, cfg.OpenSearchUsername, cfg.OpenSearchPassword)

	store := storage.NewFSStore(cfg.StorageRoot)
	rewriter := caption.NewRewriter(store, cfg.ImageBucket, cfg.ImageBaseURL, anthropic, llm.DefaultCaptionPrompt, log)

	var hist history.Store
	if cfg.HistoryURL != "" {
		hist = history.NewClient(cfg.HistoryURL, cfg.HistoryAPIKey)
	} else {
		hist = history.NewMemStore()
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, store, rewriter, searchClient, openai, log)
	orch.Start(ctx)

	// Query-time answerer.
	answerer := query.NewAnswerer(searchClient, openai, anthropic, hist,
		cfg.DefaultIndex, cfg.EmbeddingDimension, cfg.TopK, cfg.RAGThreshold, log)

	// Initialize HTTP server.
	srv := api.NewServer(orch, answerer, store, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		anthropic.Close()
		searchClient.Close()
	}()

	log.Info("starting manualrag", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
