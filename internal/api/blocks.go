package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"copydeck/internal/model"
	"copydeck/internal/tracker"
)

// parseSince reads an optional RFC 3339 "since" query parameter.
func parseSince(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &tracker.ValidationError{Field: "since", Message: "expected an RFC 3339 timestamp"}
	}
	return &t, nil
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	since, err := parseSince(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var blocks []*model.TextBlock
	if since != nil {
		blocks, err = s.svc.ListBlocksSince(*since, projectID)
	} else {
		blocks, err = s.svc.ListBlocks(projectID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, blocks)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.AcceptChange(chi.URLParam(r, "id"), chi.URLParam(r, "blockId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (s *Server) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.AcceptAllChanges(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

// handleChanges lists blocks across all projects, optionally filtered
// by project and modification time.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	projectID := r.URL.Query().Get("projectId")

	var blocks []*model.TextBlock
	switch {
	case since != nil:
		blocks, err = s.svc.ListBlocksSince(*since, projectID)
	case projectID != "":
		blocks, err = s.svc.ListBlocks(projectID)
	default:
		blocks, err = s.svc.ListAllBlocks()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"items": blocks,
		"total": len(blocks),
	})
}
