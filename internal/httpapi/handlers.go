package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/runmgr"
)

const contentTypeJSON = "application/json"

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("httpapi: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, s.mgr.Health())
}

type createRunRequest struct {
	Goal       string `json:"goal"`
	TargetDir  string `json:"target_dir"`
	MaxWorkers int    `json:"max_workers"`
}

// runsHandler handles GET /runs (list) and POST /runs (create).
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, s.mgr.List())
	case http.MethodPost:
		var req createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Goal == "" || req.TargetDir == "" {
			respondError(w, http.StatusBadRequest, "goal and target_dir are required")
			return
		}
		run, err := s.mgr.Create(req.Goal, req.TargetDir, req.MaxWorkers)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, run)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) runDetailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.PathValue("id")
	run, err := s.mgr.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) runStartHandler(w http.ResponseWriter, r *http.Request) {
	s.runTransition(w, r, s.mgr.Start)
}

func (s *Server) runPauseHandler(w http.ResponseWriter, r *http.Request) {
	s.runTransition(w, r, s.mgr.Pause)
}

func (s *Server) runResumeHandler(w http.ResponseWriter, r *http.Request) {
	s.runTransition(w, r, s.mgr.Resume)
}

func (s *Server) runStopHandler(w http.ResponseWriter, r *http.Request) {
	s.runTransition(w, r, s.mgr.Stop)
}

func (s *Server) runTransition(w http.ResponseWriter, r *http.Request, fn func(string) error) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.PathValue("id")
	if err := fn(id); err != nil {
		switch {
		case isNotFound(err):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusConflict, err.Error())
		}
		return
	}
	run, err := s.mgr.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func isNotFound(err error) bool {
	return errors.Is(err, runmgr.ErrRunNotFound)
}

// sseHandler streams the Event Bus as Server-Sent Events, matching the
// teacher's SSE connection/keep-alive/catch-up shape.
func (s *Server) sseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	id, events, catchUp := s.bus.Subscribe()
	defer s.bus.Unsubscribe(id)

	for _, evt := range catchUp {
		writeSSE(w, evt)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, evt)
			flusher.Flush()
		case <-heartbeat.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
