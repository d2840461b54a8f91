package api

import (
	"net/http"

	"copydeck/internal/tracker"
)

// handleExport snapshots text block state as JSON or CSV. Scoping the
// export to a project commits it: accepted blocks return to clean and
// the project's last_export is stamped.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		s.writeError(w, &tracker.ValidationError{Field: "format", Message: "expected json or csv"})
		return
	}

	result, err := s.svc.Export(tracker.ExportOptions{
		ProjectID: r.URL.Query().Get("projectId"),
		Since:     since,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="copydeck-export.csv"`)
		if err := tracker.WriteCSV(w, result.Items); err != nil {
			s.logger.Error("writing csv export", "error", err)
		}
		return
	}

	writeSuccess(w, http.StatusOK, result)
}
