package tracker_test

import (
	"testing"
	"time"

	"copydeck/internal/model"
	"copydeck/internal/tracker"
)

func blockInFrame(frameID string, status model.ChangeStatus) *model.TextBlock {
	var frame *model.FrameRef
	if frameID != "" {
		frame = &model.FrameRef{ID: frameID}
	}
	return &model.TextBlock{Frame: frame, Status: status}
}

func TestComputeFrameStatus(t *testing.T) {
	frame := &model.Frame{ID: "f:1", Name: "Hero"}

	t.Run("clean when frame has no blocks", func(t *testing.T) {
		got := tracker.ComputeFrameStatus(frame, nil)
		if got.Status != model.ChangeClean {
			t.Errorf("status = %s, want clean", got.Status)
		}
		if got.PendingCount != 0 {
			t.Errorf("pending count = %d, want 0", got.PendingCount)
		}
	})

	t.Run("pending dominates accepted", func(t *testing.T) {
		blocks := []*model.TextBlock{
			blockInFrame("f:1", model.ChangeAccepted),
			blockInFrame("f:1", model.ChangePending),
			blockInFrame("f:1", model.ChangePending),
		}
		got := tracker.ComputeFrameStatus(frame, blocks)
		if got.Status != model.ChangePending {
			t.Errorf("status = %s, want pending", got.Status)
		}
		if got.PendingCount != 2 {
			t.Errorf("pending count = %d, want 2", got.PendingCount)
		}
	})

	t.Run("accepted when no pending", func(t *testing.T) {
		blocks := []*model.TextBlock{
			blockInFrame("f:1", model.ChangeClean),
			blockInFrame("f:1", model.ChangeAccepted),
		}
		got := tracker.ComputeFrameStatus(frame, blocks)
		if got.Status != model.ChangeAccepted {
			t.Errorf("status = %s, want accepted", got.Status)
		}
	})

	t.Run("ignores blocks in other frames and outside frames", func(t *testing.T) {
		blocks := []*model.TextBlock{
			blockInFrame("f:2", model.ChangePending),
			blockInFrame("", model.ChangePending),
			blockInFrame("f:1", model.ChangeClean),
		}
		got := tracker.ComputeFrameStatus(frame, blocks)
		if got.Status != model.ChangeClean {
			t.Errorf("status = %s, want clean", got.Status)
		}
	})
}

func TestComputeProjectStatus(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	acceptedAt := func(t time.Time) *model.TextBlock {
		return &model.TextBlock{Status: model.ChangeAccepted, ChangeAcceptedAt: &t}
	}

	t.Run("clean with no blocks", func(t *testing.T) {
		got := tracker.ComputeProjectStatus(nil, nil)
		if got != model.ProjectClean {
			t.Errorf("status = %s, want clean", got)
		}
	})

	t.Run("pending dominates everything", func(t *testing.T) {
		blocks := []*model.TextBlock{
			acceptedAt(base),
			{Status: model.ChangePending},
		}
		got := tracker.ComputeProjectStatus(blocks, nil)
		if got != model.ProjectPending {
			t.Errorf("status = %s, want pending", got)
		}
	})

	t.Run("needs_export when accepted and never exported", func(t *testing.T) {
		blocks := []*model.TextBlock{acceptedAt(base)}
		got := tracker.ComputeProjectStatus(blocks, nil)
		if got != model.ProjectNeedsExport {
			t.Errorf("status = %s, want needs_export", got)
		}
	})

	t.Run("needs_export when accepted after last export", func(t *testing.T) {
		lastExport := base.Add(-time.Hour)
		blocks := []*model.TextBlock{acceptedAt(base)}
		got := tracker.ComputeProjectStatus(blocks, &lastExport)
		if got != model.ProjectNeedsExport {
			t.Errorf("status = %s, want needs_export", got)
		}
	})

	t.Run("clean when export covers the acceptance", func(t *testing.T) {
		lastExport := base.Add(time.Hour)
		blocks := []*model.TextBlock{acceptedAt(base)}
		got := tracker.ComputeProjectStatus(blocks, &lastExport)
		if got != model.ProjectClean {
			t.Errorf("status = %s, want clean", got)
		}
	})

	t.Run("clean with only clean blocks", func(t *testing.T) {
		blocks := []*model.TextBlock{
			{Status: model.ChangeClean},
			{Status: model.ChangeClean},
		}
		got := tracker.ComputeProjectStatus(blocks, nil)
		if got != model.ProjectClean {
			t.Errorf("status = %s, want clean", got)
		}
	})
}
