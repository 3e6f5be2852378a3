package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/tlhuang/manualrag/internal/storage"
)

// handleMarkdown serves the captioned markdown for a document, falling back
// to the raw conversion when captioning has not run yet.
func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documentMarkdown(r)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		s.log.Error("markdown read failed", "error", err)
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(doc)
}

// handlePreview renders the document's markdown to HTML.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documentMarkdown(r)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		s.log.Error("preview read failed", "error", err)
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(doc, &buf); err != nil {
		s.log.Error("markdown render failed", "error", err)
		jsonError(w, "failed to render document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><body>\n%s</body></html>\n", buf.String())
}

func (s *Server) documentMarkdown(r *http.Request) ([]byte, error) {
	key := chi.URLParam(r, "document") + ".md"
	doc, err := s.store.Get(r.Context(), s.cfg.CaptionedBucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		doc, err = s.store.Get(r.Context(), s.cfg.MarkdownBucket, key)
	}
	return doc, err
}

// handleImage serves an extracted page image.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	data, err := s.store.Get(r.Context(), s.cfg.ImageBucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error("image read failed", "key", key, "error", err)
		http.Error(w, "failed to read image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}
