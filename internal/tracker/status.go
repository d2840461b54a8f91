package tracker

import (
	"time"

	"copydeck/internal/model"
)

// ComputeFrameStatus derives a frame's review rollup from the blocks it
// contains: pending if any block is pending, else accepted if any block
// is accepted, else clean. Pure; recomputed on every read.
func ComputeFrameStatus(frame *model.Frame, blocks []*model.TextBlock) *model.FrameWithStatus {
	status := model.ChangeClean
	pending := 0
	accepted := false

	for _, b := range blocks {
		if b.Frame == nil || b.Frame.ID != frame.ID {
			continue
		}
		switch b.Status {
		case model.ChangePending:
			pending++
		case model.ChangeAccepted:
			accepted = true
		}
	}

	if pending > 0 {
		status = model.ChangePending
	} else if accepted {
		status = model.ChangeAccepted
	}

	return &model.FrameWithStatus{
		Frame:        *frame,
		Status:       status,
		PendingCount: pending,
	}
}

// ComputeProjectStatus derives the project-level rollup: pending if any
// block is pending; else needs_export if any accepted block has not yet
// been exported; else clean. Pure; recomputed on every read.
func ComputeProjectStatus(blocks []*model.TextBlock, lastExport *time.Time) model.ProjectStatus {
	hasPending := false
	needsExport := false

	for _, b := range blocks {
		switch b.Status {
		case model.ChangePending:
			hasPending = true
		case model.ChangeAccepted:
			if lastExport == nil {
				needsExport = true
			} else if b.ChangeAcceptedAt != nil && b.ChangeAcceptedAt.After(*lastExport) {
				needsExport = true
			}
		}
	}

	if hasPending {
		return model.ProjectPending
	}
	if needsExport {
		return model.ProjectNeedsExport
	}
	return model.ProjectClean
}
