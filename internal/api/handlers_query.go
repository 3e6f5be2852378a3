package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tlhuang/manualrag/internal/query"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	resp, err := s.answerer.Answer(r.Context(), req)
	if err != nil {
		s.log.Error("query failed", "error", err)
		jsonError(w, "failed to answer question", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
