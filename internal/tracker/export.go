package tracker

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"copydeck/internal/model"
)

// ExportOptions scopes an export. A non-empty ProjectID triggers the
// commit side effect (accepted blocks return to clean, last_export is
// stamped); Since restricts the snapshot to recently modified blocks.
type ExportOptions struct {
	ProjectID string
	Since     *time.Time
}

// ExportResult is the snapshot returned by Export.
type ExportResult struct {
	Items      []*model.TextBlock `json:"items"`
	Total      int                `json:"total"`
	ExportedAt time.Time          `json:"exportedAt"`
}

// Export reads the current text block state. When scoped to a single
// project it is also the commit point: every accepted block in that
// project transitions to clean and the project's last_export is set,
// telling the system the accepted changes have left it. Re-exporting an
// already-clean project changes nothing.
func (s *Service) Export(opts ExportOptions) (*ExportResult, error) {
	if opts.ProjectID != "" {
		project, err := s.store.GetProject(opts.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("loading project: %w", err)
		}
		if project == nil {
			return nil, fmt.Errorf("project %s: %w", opts.ProjectID, ErrNotFound)
		}
	}

	blocks, err := s.store.ListTextBlocks(BlockFilter{ProjectID: opts.ProjectID, Since: opts.Since})
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}

	exportedAt := s.clock.Now()

	if opts.ProjectID != "" {
		if err := s.store.CommitExport(opts.ProjectID, exportedAt); err != nil {
			return nil, fmt.Errorf("committing export: %w", err)
		}
		s.logger.Info("export committed", "project", opts.ProjectID, "blocks", len(blocks))
	}

	return &ExportResult{
		Items:      blocks,
		Total:      len(blocks),
		ExportedAt: exportedAt,
	}, nil
}

// csvHeader is the flattened delimited-text layout consumed by the
// desktop publishing pipeline.
var csvHeader = []string{
	"id", "project_id", "page_id", "page_name", "frame_id", "frame_name",
	"content", "style", "x", "y", "width", "height", "last_modified",
}

// WriteCSV renders blocks as RFC 4180 CSV: fields containing the
// delimiter, quotes, or newlines come out quoted with doubled quote
// characters, so a conforming parser round-trips the original strings.
func WriteCSV(w io.Writer, blocks []*model.TextBlock) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, b := range blocks {
		frameID, frameName := "", ""
		if b.Frame != nil {
			frameID, frameName = b.Frame.ID, b.Frame.Name
		}
		record := []string{
			b.ID,
			b.ProjectID,
			b.PageID,
			b.PageName,
			frameID,
			frameName,
			b.Content,
			b.Style,
			formatNumber(b.X),
			formatNumber(b.Y),
			formatNumber(b.Width),
			formatNumber(b.Height),
			b.LastModified.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the export result as indented JSON.
func WriteJSON(w io.Writer, result *ExportResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("writing json export: %w", err)
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
