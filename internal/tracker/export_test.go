package tracker_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"copydeck/internal/model"
	"copydeck/internal/testutil"
	"copydeck/internal/tracker"
)

func TestService_Export(t *testing.T) {
	t.Run("project export commits accepted blocks", func(t *testing.T) {
		e := newTestService(t)
		id := pendingProject(t, e)
		if _, err := e.svc.AcceptAllChanges(id); err != nil {
			t.Fatalf("AcceptAllChanges() error = %v", err)
		}
		e.clock.Advance(time.Minute)

		result, err := e.svc.Export(tracker.ExportOptions{ProjectID: id})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}
		if !result.ExportedAt.Equal(e.clock.T) {
			t.Errorf("exported at = %v, want %v", result.ExportedAt, e.clock.T)
		}

		block, _ := e.store.GetTextBlock("t:1")
		if block.Status != model.ChangeClean {
			t.Errorf("status after export = %s, want clean", block.Status)
		}
		if block.ChangeAcceptedAt != nil {
			t.Error("change_accepted_at must be cleared by the commit")
		}

		project, _ := e.store.GetProject(id)
		if project.LastExport == nil || !project.LastExport.Equal(e.clock.T) {
			t.Errorf("last export = %v, want %v", project.LastExport, e.clock.T)
		}

		status, err := e.svc.ProjectStatus(id)
		if err != nil {
			t.Fatalf("ProjectStatus() error = %v", err)
		}
		if status != model.ProjectClean {
			t.Errorf("project status = %s, want clean after export", status)
		}
	})

	t.Run("pending blocks survive the commit", func(t *testing.T) {
		e := newTestService(t)
		id := pendingProject(t, e)

		if _, err := e.svc.Export(tracker.ExportOptions{ProjectID: id}); err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		block, _ := e.store.GetTextBlock("t:1")
		if block.Status != model.ChangePending {
			t.Errorf("status = %s, want pending (export commits accepted only)", block.Status)
		}
	})

	t.Run("global export commits nothing", func(t *testing.T) {
		e := newTestService(t)
		id := pendingProject(t, e)
		if _, err := e.svc.AcceptAllChanges(id); err != nil {
			t.Fatalf("AcceptAllChanges() error = %v", err)
		}

		result, err := e.svc.Export(tracker.ExportOptions{})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}

		block, _ := e.store.GetTextBlock("t:1")
		if block.Status != model.ChangeAccepted {
			t.Errorf("status = %s, want accepted (global export is read-only)", block.Status)
		}
		project, _ := e.store.GetProject(id)
		if project.LastExport != nil {
			t.Errorf("last export = %v, want nil", project.LastExport)
		}
	})

	t.Run("since restricts the snapshot", func(t *testing.T) {
		e := newTestService(t)
		id := e.createProject(t, tracker.ProjectInput{})
		e.provider.File = testutil.NewFile("design",
			testutil.NewPage("1:0", "Home",
				testutil.NewText("t:1", "old", 14, 0, 0, 50, 10),
				testutil.NewText("t:2", "newer", 14, 0, 20, 50, 10),
			),
		)
		if _, err := e.svc.Sync(context.Background(), id); err != nil {
			t.Fatalf("first Sync() error = %v", err)
		}

		cutoff := e.clock.T.Add(time.Minute)
		e.clock.Advance(time.Hour)
		e.provider.File = testutil.NewFile("design",
			testutil.NewPage("1:0", "Home",
				testutil.NewText("t:2", "newer still", 14, 0, 20, 50, 10),
			),
		)
		if _, err := e.svc.Sync(context.Background(), id); err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}

		result, err := e.svc.Export(tracker.ExportOptions{ProjectID: id, Since: &cutoff})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if result.Total != 1 {
			t.Fatalf("total = %d, want 1", result.Total)
		}
		if result.Items[0].ID != "t:2" {
			t.Errorf("exported block = %s, want t:2", result.Items[0].ID)
		}
	})

	t.Run("unknown project is not found", func(t *testing.T) {
		e := newTestService(t)
		_, err := e.svc.Export(tracker.ExportOptions{ProjectID: "nope"})
		if !errors.Is(err, tracker.ErrNotFound) {
			t.Errorf("Export() error = %v, want ErrNotFound", err)
		}
	})
}

func TestWriteCSV(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	blocks := []*model.TextBlock{
		{
			ID: "t:1", ProjectID: "p1", PageID: "1:0", PageName: "Home",
			Frame:   &model.FrameRef{ID: "f:1", Name: "Hero"},
			Content: `Quote "me", please`, Style: "Body M",
			X: 10.5, Y: 20, Width: 200, Height: 40,
			LastModified: now,
		},
		{
			ID: "t:2", ProjectID: "p1", PageID: "1:0", PageName: "Home",
			Content: "Line one\nline two", Style: "Body S",
			LastModified: now,
		},
	}

	var buf bytes.Buffer
	if err := tracker.WriteCSV(&buf, blocks); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading produced CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header plus 2 rows", len(records))
	}

	header := strings.Join(records[0], ",")
	want := "id,project_id,page_id,page_name,frame_id,frame_name,content,style,x,y,width,height,last_modified"
	if header != want {
		t.Errorf("header = %s, want %s", header, want)
	}

	row := records[1]
	if row[6] != `Quote "me", please` {
		t.Errorf("content round-trip = %q", row[6])
	}
	if row[4] != "f:1" || row[5] != "Hero" {
		t.Errorf("frame columns = %s/%s, want f:1/Hero", row[4], row[5])
	}
	if row[8] != "10.5" || row[9] != "20" {
		t.Errorf("coordinates = %s/%s, want 10.5/20", row[8], row[9])
	}
	if row[12] != "2024-06-01T12:00:00Z" {
		t.Errorf("last modified = %s, want RFC 3339 UTC", row[12])
	}

	frameless := records[2]
	if frameless[4] != "" || frameless[5] != "" {
		t.Errorf("frameless block columns = %s/%s, want empty", frameless[4], frameless[5])
	}
	if frameless[6] != "Line one\nline two" {
		t.Errorf("multiline content round-trip = %q", frameless[6])
	}
}

func TestWriteJSON(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := &tracker.ExportResult{
		Items:      []*model.TextBlock{{ID: "t:1", Content: "Hello", Status: model.ChangeClean, LastModified: now, CreatedAt: now}},
		Total:      1,
		ExportedAt: now,
	}

	var buf bytes.Buffer
	if err := tracker.WriteJSON(&buf, result); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var decoded tracker.ExportResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding produced JSON: %v", err)
	}
	if decoded.Total != 1 || len(decoded.Items) != 1 || decoded.Items[0].ID != "t:1" {
		t.Errorf("round-trip = %+v", decoded)
	}
}
