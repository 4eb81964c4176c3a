package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"verifyd/internal/logging"
	"verifyd/internal/verification"
)

// Terminal session responses are immutable, so they may be cached briefly.
// Non-terminal responses must never be cached: the caller is polling for
// the next transition.
const (
	cacheControlTerminal = "public, max-age=300"
	cacheControlPolling  = "no-store"
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req verification.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.dispatcher.Submit(r.Context(), req)
	if err != nil {
		var vErr *verification.ValidationError
		if errors.As(err, &vErr) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": vErr.Reason,
				"field": vErr.Field,
			})
			return
		}
		s.logger.Error("failed to create verification", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create verification session")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var job verification.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.dispatcher.Enqueue(job); err != nil {
		var vErr *verification.ValidationError
		if errors.As(err, &vErr) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": vErr.Reason,
				"field": vErr.Field,
			})
			return
		}
		if errors.Is(err, verification.ErrQueueFull) {
			s.writeError(w, http.StatusServiceUnavailable, "dispatch queue full, retry later")
			return
		}
		s.logger.Error("failed to enqueue worker trigger", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to enqueue verification")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":       true,
		"verificationId": job.SessionID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/verifications/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "verification session not found")
		return
	}

	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		// Store unavailability is an infrastructure problem, retryable by
		// the caller; it must not masquerade as not-found.
		s.logger.Error("failed to read session", logging.String("session_id", id), logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "session store unavailable, retry later")
		return
	}
	if sess == nil {
		w.Header().Set("Cache-Control", cacheControlPolling)
		s.writeError(w, http.StatusNotFound, "verification session not found (it may have expired)")
		return
	}

	if sess.IsTerminal() {
		w.Header().Set("Cache-Control", cacheControlTerminal)
	} else {
		w.Header().Set("Cache-Control", cacheControlPolling)
	}
	s.writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.store.CheckHealth(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"healthy": false,
			"error":   err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"healthy": true})
}
