package tracker

import (
	"fmt"
	"time"

	"copydeck/internal/model"
)

// AcceptResult reports a single accepted change.
type AcceptResult struct {
	BlockID    string    `json:"blockId"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// AcceptAllResult reports a bulk acceptance.
type AcceptAllResult struct {
	AcceptedCount int       `json:"acceptedCount"`
	AcceptedAt    time.Time `json:"acceptedAt"`
}

// AcceptChange transitions one pending block to accepted, clearing its
// previous_* baseline and stamping change_accepted_at. Accepting a
// block that exists but is not pending is a no-op; a block that does
// not belong to the project is ErrNotFound. Acceptance is terminal for
// the diff: the baseline is gone and cannot be restored.
func (s *Service) AcceptChange(projectID, blockID string) (*AcceptResult, error) {
	now := s.clock.Now()

	affected, err := s.store.AcceptChange(projectID, blockID, now)
	if err != nil {
		return nil, fmt.Errorf("accepting change: %w", err)
	}

	if !affected {
		block, err := s.store.GetTextBlock(blockID)
		if err != nil {
			return nil, fmt.Errorf("loading block: %w", err)
		}
		if block == nil || block.ProjectID != projectID {
			return nil, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
		}
		// Exists but isn't pending: nothing to accept, state untouched.
	}

	s.logger.Info("change accepted", "project", projectID, "block", blockID)
	return &AcceptResult{BlockID: blockID, AcceptedAt: now}, nil
}

// AcceptAllChanges applies the accept transition to every pending block
// in the project, atomically, and returns the count affected.
func (s *Service) AcceptAllChanges(projectID string) (*AcceptAllResult, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	now := s.clock.Now()
	count, err := s.store.AcceptAllChanges(projectID, now)
	if err != nil {
		return nil, fmt.Errorf("accepting all changes: %w", err)
	}

	s.logger.Info("all pending changes accepted", "project", projectID, "count", count)
	return &AcceptAllResult{AcceptedCount: count, AcceptedAt: now}, nil
}

// ListBlocks returns all text blocks owned by the project.
func (s *Service) ListBlocks(projectID string) ([]*model.TextBlock, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return s.store.ListTextBlocks(BlockFilter{ProjectID: projectID})
}

// ListAllBlocks returns every text block across all projects.
func (s *Service) ListAllBlocks() ([]*model.TextBlock, error) {
	return s.store.ListTextBlocks(BlockFilter{})
}

// ListBlocksSince returns blocks modified at or after the given time,
// optionally restricted to one project.
func (s *Service) ListBlocksSince(since time.Time, projectID string) ([]*model.TextBlock, error) {
	return s.store.ListTextBlocks(BlockFilter{ProjectID: projectID, Since: &since})
}
