package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/papyra/papyra/internal/engine"
	"github.com/papyra/papyra/internal/models"
	"go.uber.org/zap"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil || !s.engine.Ready() {
		s.respondError(w, http.StatusInternalServerError, "engine not initialized")
		return
	}
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))

	result, err := s.engine.Query(r.Context(), req.Question, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrEmptyQuestion):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("query failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ready := s.engine != nil && s.engine.Ready()
	resp := map[string]interface{}{
		"ready": ready,
	}
	if ready {
		resp["index_size"] = s.engine.IndexSize()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
