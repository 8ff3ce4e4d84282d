// Package web exposes the assistant over HTTP: query answering, catalog
// stats and session management.
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/studyhall-ai/studyhall/sdk/agent"
	"github.com/studyhall-ai/studyhall/sdk/knowledge"
	"github.com/studyhall-ai/studyhall/sdk/session"
)

// Server routes HTTP requests to the assistant and the knowledge layer.
type Server struct {
	assistant *agent.Assistant
	knowledge *knowledge.Service
	history   *session.Store
	mux       *http.ServeMux
}

// NewServer builds the HTTP handler around a wired system.
func NewServer(assistant *agent.Assistant, svc *knowledge.Service, history *session.Store) *Server {
	s := &Server{
		assistant: assistant,
		knowledge: svc,
		history:   history,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleClearSession)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := s.assistant.AnswerQuery(r.Context(), req.Query, req.SessionID)
	if err != nil {
		// The real cause goes to the log, not to the client.
		log.Printf("web: query failed: %v", err)
		if errors.Is(err, agent.ErrQueryFailed) {
			writeError(w, http.StatusInternalServerError, "query failed")
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	stats, err := s.knowledge.GetStats(r.Context())
	if err != nil {
		log.Printf("web: stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	s.history.Clear(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
