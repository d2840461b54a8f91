package api

import (
	"net/http"

	"copydeck/internal/tracker"
)

// handleGetSettings reports app-wide settings. The default token is
// never returned, only whether one is configured.
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	hasToken, err := s.svc.HasDefaultToken()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"hasToken": hasToken})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token *string `json:"token"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if body.Token == nil {
		s.writeError(w, &tracker.ValidationError{Field: "token", Message: "token is required"})
		return
	}
	if err := s.svc.SetDefaultToken(*body.Token); err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}
