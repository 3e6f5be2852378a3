package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tlhuang/manualrag/internal/config"
	"github.com/tlhuang/manualrag/internal/pipeline"
	"github.com/tlhuang/manualrag/internal/query"
	"github.com/tlhuang/manualrag/internal/storage"
)

// Server is the HTTP API server for manualrag.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	answerer     *query.Answerer
	store        storage.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, answerer *query.Answerer, store storage.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		answerer:     answerer,
		store:        store,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints. Extracted images stay public so the locators
	// embedded in captioned markdown resolve.
	r.Get("/health", s.handleHealth)
	r.Get("/images/*", s.handleImage)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)

		r.Post("/api/query", s.handleQuery)

		r.Get("/api/documents/{document}/markdown", s.handleMarkdown)
		r.Get("/api/documents/{document}/preview", s.handlePreview)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
