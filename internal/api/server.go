// Package api exposes the tracker service over a local HTTP API.
// Every JSON endpoint responds with the same envelope:
//
//	{"success": true, "data": ...} or {"success": false, "error": "..."}
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"copydeck/internal/tracker"
)

// Server routes HTTP requests to the tracker service.
type Server struct {
	svc    *tracker.Service
	logger tracker.Logger
}

// NewServer creates a Server around the given service.
func NewServer(svc *tracker.Service, logger tracker.Logger) *Server {
	if logger == nil {
		logger = &tracker.NopLogger{}
	}
	return &Server{svc: svc, logger: logger}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Put("/", s.handleUpdateProject)
			r.Delete("/", s.handleDeleteProject)
			r.Post("/restore", s.handleRestoreProject)
			r.Post("/sync", s.handleSync)
			r.Get("/status", s.handleProjectStatus)
			r.Get("/pages", s.handleListPages)
			r.Get("/frames", s.handleListFrames)
			r.Get("/text-blocks", s.handleListBlocks)
			r.Post("/text-blocks/accept-all", s.handleAcceptAll)
			r.Post("/text-blocks/{blockId}/accept", s.handleAccept)
		})
		r.Get("/frames/{frameId}/image", s.handleFrameImage)
		r.Get("/changes", s.handleChanges)
		r.Get("/export", s.handleExport)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// envelope is the uniform JSON response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps service errors to HTTP statuses: validation failures
// are 400, missing resources 404, concurrent syncs 409, provider
// failures keep the upstream status, everything else is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var valErr *tracker.ValidationError
	var provErr *tracker.ProviderError

	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, envelope{Error: valErr.Error()})
	case errors.Is(err, tracker.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Error: err.Error()})
	case errors.Is(err, tracker.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, envelope{Error: err.Error()})
	case errors.As(err, &provErr):
		status := provErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, envelope{Error: provErr.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Error: err.Error()})
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &tracker.ValidationError{Field: "body", Message: "invalid JSON payload"}
	}
	return nil
}
