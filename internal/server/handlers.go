package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/tracker"
)

type queryRequest struct {
	Query         string `json:"query"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	TopK          int    `json:"top_k,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	cfg := s.runConfig(req)
	resp, err := s.runner.Run(r.Context(), req.Query, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// runConfig applies per-request overrides to the server's base run
// configuration.
func (s *Server) runConfig(req queryRequest) orchestrator.Config {
	cfg := s.cfg.Run
	if req.MaxIterations > 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	if req.TopK > 0 {
		cfg.TopK = req.TopK
	}
	return cfg
}

type feedbackRequest struct {
	RunID    string `json:"run_id"`
	Feedback string `json:"feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	feedback, err := tracker.ParseFeedback(req.Feedback)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.tracker.RecordUserFeedback(r.Context(), req.RunID, feedback); err != nil {
		if errors.Is(err, tracker.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "unknown run id")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.AllMetrics())
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Insights())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.tracker.QueryHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Content can be large; the listing only carries identity fields.
	type docSummary struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Bytes     int    `json:"bytes"`
		UpdatedAt string `json:"updated_at"`
	}
	out := make([]docSummary, len(docs))
	for i, d := range docs {
		out[i] = docSummary{
			ID:        d.ID,
			Title:     d.Title,
			Bytes:     len(d.Content),
			UpdatedAt: d.UpdatedAt.Format(time.DateTime),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
