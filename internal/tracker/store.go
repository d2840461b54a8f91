package tracker

import (
	"time"

	"copydeck/internal/model"
)

// ProjectUpdate is a partial update of a project's settings. Nil fields
// are left untouched.
type ProjectUpdate struct {
	Name           *string
	FileKey        *string
	Token          *string
	IncludedFrames *[]string
	SourcePageIDs  *[]string
}

// BlockFilter restricts a text block listing. Zero values mean "no filter".
type BlockFilter struct {
	ProjectID string
	Since     *time.Time
}

// Store provides durable persistence for projects, frames, and text
// blocks. Multi-row operations that must be all-or-nothing (accept-all,
// export commit, cascade delete) are transactional inside the
// implementation; everything else is atomic at the row level.
type Store interface {
	// Project operations

	// CreateProject inserts a new project row.
	CreateProject(p *model.Project) error

	// GetProject returns a project by id, or nil if it does not exist
	// or is archived.
	GetProject(id string) (*model.Project, error)

	// GetProjectAny returns a project by id regardless of its archived
	// flag, or nil if it does not exist.
	GetProjectAny(id string) (*model.Project, error)

	// ListProjects returns projects ordered by most recently updated.
	ListProjects(includeArchived bool) ([]*model.Project, error)

	// UpdateProject applies a partial settings update and bumps
	// updated_at. Returns the updated row, or nil if the project does
	// not exist or is archived.
	UpdateProject(id string, upd ProjectUpdate, now time.Time) (*model.Project, error)

	// SetProjectLastSync records the timestamp of a completed sync.
	SetProjectLastSync(id string, t time.Time) error

	// ArchiveProject soft-deletes a project (hidden from listings).
	ArchiveProject(id string, now time.Time) error

	// RestoreProject clears the archived flag.
	RestoreProject(id string, now time.Time) error

	// DeleteProject hard-deletes a project and cascades to all owned
	// text blocks and frames in one transaction.
	DeleteProject(id string) error

	// Text block operations

	// GetTextBlock returns a block by id, or nil if not found.
	GetTextBlock(id string) (*model.TextBlock, error)

	// ListTextBlocks returns blocks matching the filter, ordered by
	// page name then last_modified descending.
	ListTextBlocks(f BlockFilter) ([]*model.TextBlock, error)

	// InsertTextBlock inserts a newly observed block with status clean.
	InsertTextBlock(b *model.TextBlock) error

	// RecordChange overwrites the block's current fields with the newly
	// observed values, copies the pre-update values into the previous_*
	// baseline, and sets status pending and change_detected_at, all in
	// a single statement so the baseline capture is atomic.
	RecordChange(b *model.TextBlock, detectedAt time.Time) error

	// TouchUnchanged rewrites only page/frame linkage and last_modified
	// for a block whose fingerprint matched, and clears missing_since.
	// Change-tracking fields are never touched.
	TouchUnchanged(b *model.TextBlock, lastModified time.Time) error

	// MarkMissingExcept stamps missing_since=now on the project's blocks
	// whose ids are not in seen and that are not already marked.
	MarkMissingExcept(projectID string, seen []string, now time.Time) error

	// AcceptChange transitions one pending block to accepted, clearing
	// its previous_* baseline. Reports whether a row was affected.
	AcceptChange(projectID, blockID string, now time.Time) (bool, error)

	// AcceptAllChanges transitions every pending block in the project to
	// accepted. Returns the number of blocks affected.
	AcceptAllChanges(projectID string, now time.Time) (int, error)

	// CommitExport transitions every accepted block in the project back
	// to clean and sets the project's last_export, in one transaction.
	CommitExport(projectID string, exportedAt time.Time) error

	// Frame operations

	// UpsertFrame inserts or fully updates a frame row by id.
	UpsertFrame(f *model.Frame) error

	// GetFrame returns a frame by id, or nil if not found.
	GetFrame(id string) (*model.Frame, error)

	// ListFramesByProject returns the project's frames in visual order
	// (y, then x).
	ListFramesByProject(projectID string) ([]*model.Frame, error)

	// App-level settings (legacy key-value table, not part of the core)

	// GetSetting returns the value for key, or "" if unset.
	GetSetting(key string) (string, error)

	// SetSetting upserts a key-value pair.
	SetSetting(key, value string, now time.Time) error

	// Close closes the underlying store.
	Close() error
}
