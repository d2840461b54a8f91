package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"copydeck/internal/tracker"
)

type projectPayload struct {
	Name           *string   `json:"name"`
	FileKey        *string   `json:"fileKey"`
	Token          *string   `json:"token"`
	IncludedFrames *[]string `json:"includedFrames"`
	SourcePageIDs  *[]string `json:"sourcePageIds"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("includeArchived") == "true"
	projects, err := s.svc.ListProjects(includeArchived)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body projectPayload
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}

	in := tracker.ProjectInput{}
	if body.Name != nil {
		in.Name = *body.Name
	}
	if body.FileKey != nil {
		in.FileKey = *body.FileKey
	}
	if body.Token != nil {
		in.Token = *body.Token
	}
	if body.IncludedFrames != nil {
		in.IncludedFrames = *body.IncludedFrames
	}
	if body.SourcePageIDs != nil {
		in.SourcePageIDs = *body.SourcePageIDs
	}

	// Fall back to the app-wide default token when none was provided.
	if in.Token == "" {
		token, err := s.svc.DefaultToken()
		if err != nil {
			s.writeError(w, err)
			return
		}
		in.Token = token
	}

	project, err := s.svc.CreateProject(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.svc.GetProject(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var body projectPayload
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}

	upd := tracker.ProjectUpdate{
		Name:           body.Name,
		FileKey:        body.FileKey,
		Token:          body.Token,
		IncludedFrames: body.IncludedFrames,
		SourcePageIDs:  body.SourcePageIDs,
	}

	project, err := s.svc.UpdateProject(chi.URLParam(r, "id"), upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, project)
}

// handleDeleteProject archives by default; ?hard=true deletes the
// project and everything it owns.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = s.svc.DeleteProject(id)
	} else {
		err = s.svc.ArchiveProject(id)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleRestoreProject(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RestoreProject(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Sync(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.ProjectStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.svc.ListPages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, pages)
}

func (s *Server) handleListFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := s.svc.ListFrames(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, frames)
}

func (s *Server) handleFrameImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := s.svc.FrameImage(chi.URLParam(r, "frameId"), w); err != nil {
		w.Header().Del("Content-Type")
		s.writeError(w, err)
		return
	}
}
