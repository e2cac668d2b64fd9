package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tobyward/sitegen/internal/generate"
	"github.com/tobyward/sitegen/internal/sandbox"
	"github.com/tobyward/sitegen/internal/store"
)

// PromptRequest is the JSON body for POST /prompt.
type PromptRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId,omitempty"`
}

// MessageResponse is the body for simple 4xx rejections.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body for sandbox management endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SandboxListResponse is returned by GET /sandboxes.
type SandboxListResponse struct {
	Success         bool           `json:"success"`
	ActiveSandboxes []sandbox.Info `json:"activeSandboxes"`
	Count           int            `json:"count"`
}

// GenerationListResponse is returned by GET /generations.
type GenerationListResponse struct {
	Generations []*store.Generation `json:"generations"`
	Count       int                 `json:"count"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	ActiveSandboxes int    `json:"activeSandboxes"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		ActiveSandboxes: s.sandboxes.Count(),
	})
}

// handlePrompt handles POST /prompt. The response is a chunked
// text/plain stream; failures before the first byte is committed come
// back as JSON error responses, later ones travel in-band.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, MessageResponse{Message: "prompt is required."})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	sink := generate.NewSink(w, flush)

	err := s.generator.Run(r.Context(), generate.Request{
		Prompt:    req.Prompt,
		SessionID: req.SessionID,
	}, sink)
	if err == nil {
		return
	}
	if sink.Committed() {
		// Headers are gone; nothing structured can be sent anymore.
		s.logger.Error("generation failed mid-stream", "error", err)
		return
	}

	var verr *generate.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, MessageResponse{Message: verr.Message})
		return
	}

	s.logger.Error("generation failed", "error", err)
	respondJSON(w, http.StatusInternalServerError, StatusResponse{
		Success: false,
		Message: "Failed to generate website",
		Error:   err.Error(),
	})
}

// handleDeleteSandbox handles DELETE /sandbox/{sandbox_id}.
func (s *Server) handleDeleteSandbox(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandbox_id")

	err := s.sandboxes.Delete(r.Context(), sandboxID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, StatusResponse{
			Success: true,
			Message: "Sandbox " + sandboxID + " deleted successfully",
		})
	case errors.Is(err, sandbox.ErrNotFound):
		respondJSON(w, http.StatusNotFound, StatusResponse{
			Success: false,
			Message: "Sandbox " + sandboxID + " not found",
		})
	default:
		s.logger.Error("sandbox teardown failed", "sandbox_id", sandboxID, "error", err)
		respondJSON(w, http.StatusInternalServerError, StatusResponse{
			Success: false,
			Message: "Failed to delete sandbox",
			Error:   err.Error(),
		})
	}
}

// handleListSandboxes handles GET /sandboxes.
func (s *Server) handleListSandboxes(w http.ResponseWriter, r *http.Request) {
	active := s.sandboxes.List()
	respondJSON(w, http.StatusOK, SandboxListResponse{
		Success:         true,
		ActiveSandboxes: active,
		Count:           len(active),
	})
}

// handleListGenerations handles GET /generations.
func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondJSON(w, http.StatusBadRequest, MessageResponse{Message: "limit must be a positive integer."})
			return
		}
		limit = n
	}

	gens, err := s.gens.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list generations", "error", err)
		respondJSON(w, http.StatusInternalServerError, StatusResponse{
			Success: false,
			Message: "Failed to list generations",
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, GenerationListResponse{
		Generations: gens,
		Count:       len(gens),
	})
}

// handleGetGeneration handles GET /generations/{generation_id}.
func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "generation_id")

	gen, err := s.gens.GetByID(r.Context(), id)
	if err != nil {
		respondJSON(w, http.StatusNotFound, MessageResponse{Message: "generation not found."})
		return
	}

	respondJSON(w, http.StatusOK, gen)
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
