// Package server provides an HTTP API for submitting, monitoring, and
// canceling generation sessions.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-ai/inkwell/generate"
	"github.com/inkwell-ai/inkwell/provider"
	"github.com/inkwell-ai/inkwell/server/sessionhttp"
	"github.com/inkwell-ai/inkwell/session"
)

// Server provides HTTP API for generation sessions
type Server struct {
	manager    *session.Manager
	client     *generate.Client
	httpServer *http.Server
	port       int
}

// Config holds server configuration
type Config struct {
	Manager *session.Manager
	Client  *generate.Client
	Port    int
}

// New creates a new generation API server
func New(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("generation client is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	server := &Server{
		manager: cfg.Manager,
		client:  cfg.Client,
		port:    cfg.Port,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/generations", server.handleGenerations)
	mux.HandleFunc("/generations/", server.handleGenerationByID)
	mux.HandleFunc("/owners/", server.handleOwner)
	mux.HandleFunc("/health", server.handleHealth)

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("[Server] Starting generation API server on port %d", s.port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	log.Printf("[Server] Stopping generation API server")
	return s.httpServer.Shutdown(ctx)
}

// SubmitRequest represents a request to start a generation
type SubmitRequest struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model,omitempty"`
	OwnerID      string `json:"owner_id,omitempty"`
	TimeoutMs    int    `json:"timeout_ms,omitempty"`
}

// SubmitResponse represents a response from starting a generation
type SubmitResponse struct {
	SessionID string `json:"session_id"`
}

// StatusResponse represents a session status response
type StatusResponse struct {
	SessionID string     `json:"session_id"`
	OwnerID   string     `json:"owner_id,omitempty"`
	Status    string     `json:"status"`
	Percent   int        `json:"percent"`
	Message   string     `json:"message,omitempty"`
	Chapters  string     `json:"chapters,omitempty"`
	Model     string     `json:"model,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleGenerations handles POST /generations (submit)
func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Prompt == "" {
		s.sendError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	genReq := &provider.Request{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
	}
	opts := session.SubmitOptions{OwnerID: req.OwnerID}
	if req.TimeoutMs > 0 {
		opts.Deadline = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	sess, err := s.manager.Submit(r.Context(), s.client.Call(genReq, req.OwnerID), opts)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to submit generation: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, SubmitResponse{SessionID: sess.ID()})
}

// handleGenerationByID handles GET /generations/{id}, GET /generations/{id}/events, POST /generations/{id}/cancel
func (s *Server) handleGenerationByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 2 {
		s.sendError(w, http.StatusNotFound, "session ID required")
		return
	}

	sessionID := pathParts[1]

	if len(pathParts) == 2 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetStatus(w, r, sessionID)
		default:
			s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	} else if len(pathParts) == 3 {
		action := pathParts[2]
		switch action {
		case "events":
			if r.Method == http.MethodGet {
				s.handleGetEvents(w, r, sessionID)
			} else {
				s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
		case "cancel":
			if r.Method == http.MethodPost {
				s.handleCancel(w, r, sessionID)
			} else {
				s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
		default:
			s.sendError(w, http.StatusNotFound, "unknown action")
		}
	} else {
		s.sendError(w, http.StatusNotFound, "not found")
	}
}

// handleGetStatus handles GET /generations/{id}
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request, sessionID string) {
	rec, err := s.manager.Store().GetRecord(r.Context(), sessionID)
	if err != nil {
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("session not found: %v", err))
		return
	}

	resp := StatusResponse{
		SessionID: rec.SessionID,
		OwnerID:   rec.OwnerID,
		Status:    string(rec.Status),
		Percent:   rec.Percent,
		Message:   rec.Message,
		Chapters:  rec.Chapters,
		Model:     rec.Model,
		Error:     rec.Error,
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleGetEvents handles GET /generations/{id}/events
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request, sessionID string) {
	// Check if SSE is requested
	acceptHeader := r.Header.Get("Accept")
	if strings.Contains(acceptHeader, "text/event-stream") {
		lastID := r.Header.Get("Last-Event-ID")
		_ = sessionhttp.StreamTransitions(
			r.Context(),
			w,
			lastID,
			s.manager.Store().TransitionsSince,
			sessionID,
			500*time.Millisecond,
			15*time.Second,
		)
		return
	}

	// Return all transitions as JSON
	trs, err := s.manager.Store().Transitions(r.Context(), sessionID)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get transitions: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, trs)
}

// handleCancel handles POST /generations/{id}/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !s.manager.Cancel(sessionID) {
		s.sendError(w, http.StatusConflict, "session already terminal or unknown")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleOwner handles POST /owners/{id}/cancel
func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 3 || pathParts[2] != "cancel" {
		s.sendError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n := s.manager.CancelOwner(pathParts[1])
	s.sendJSON(w, http.StatusOK, map[string]int{"canceled": n})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
