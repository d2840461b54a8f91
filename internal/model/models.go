package model

import "time"

// ChangeStatus is the explicit review state of a text block.
// Legal transitions:
//
//	clean    -> pending   (sync detects a fingerprint mismatch)
//	pending  -> pending   (a second change before review replaces the baseline)
//	pending  -> accepted  (user accepts the change)
//	accepted -> pending   (another change arrives before export)
//	accepted -> clean     (export commits the accepted state)
type ChangeStatus string

const (
	ChangeClean    ChangeStatus = "clean"
	ChangePending  ChangeStatus = "pending"
	ChangeAccepted ChangeStatus = "accepted"
)

// Valid reports whether s is one of the known change statuses.
func (s ChangeStatus) Valid() bool {
	switch s {
	case ChangeClean, ChangePending, ChangeAccepted:
		return true
	}
	return false
}

// ProjectStatus is the derived project-level rollup. It is computed on
// every read, never stored.
type ProjectStatus string

const (
	ProjectClean       ProjectStatus = "clean"
	ProjectPending     ProjectStatus = "pending"
	ProjectNeedsExport ProjectStatus = "needs_export"
)

// Project identifies one sync target: a remote design file plus the
// scope filters and credentials needed to pull from it.
type Project struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	FileKey string `json:"fileKey"`
	Token   string `json:"-"` // encrypted at rest, never serialized
	// IncludedFrames restricts sync to the listed frame ids.
	// Empty means "all frames".
	IncludedFrames []string `json:"includedFrames"`
	// SourcePageIDs restricts extraction to the listed pages.
	// Empty means "all pages".
	SourcePageIDs []string   `json:"sourcePageIds"`
	LastSync      *time.Time `json:"lastSync"`
	LastExport    *time.Time `json:"lastExport"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Frame is a top-level visual grouping (artboard) that owns zero or
// more text blocks. Upserted by id on every sync that observes it.
type Frame struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Name       string    `json:"name"`
	ImageRef   string    `json:"imageRef"` // image store reference, "" if none
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	LastSynced time.Time `json:"lastSynced"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FrameRef is a text block's link to its enclosing frame, carrying the
// frame geometry observed at extraction time.
type FrameRef struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snapshot holds the pre-change values of a text block. It is the
// baseline shown in the review diff and exists only while the block's
// status is pending; acceptance clears it.
type Snapshot struct {
	Content     string  `json:"content"`
	Style       string  `json:"style"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Fingerprint string  `json:"fingerprint"`
}

// TextBlock is one discrete text-bearing leaf item pulled from the
// remote file. The id is stable across syncs (same source id, same row).
type TextBlock struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	PageID      string    `json:"pageId"`
	PageName    string    `json:"pageName"`
	Frame       *FrameRef `json:"frame"` // nil when outside any frame
	Content     string    `json:"content"`
	Style       string    `json:"style"`
	FontSize    float64   `json:"fontSize"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Fingerprint string    `json:"fingerprint"`

	Status           ChangeStatus `json:"status"`
	Previous         *Snapshot    `json:"previous"` // non-nil while Status is pending
	ChangeDetectedAt *time.Time   `json:"changeDetectedAt"`
	ChangeAcceptedAt *time.Time   `json:"changeAcceptedAt"`
	// MissingSince is set when a sync no longer observes this block in
	// the remote file, and cleared if it reappears.
	MissingSince *time.Time `json:"missingSince"`

	LastModified time.Time `json:"lastModified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FrameWithStatus decorates a frame with its derived review rollup.
type FrameWithStatus struct {
	Frame
	Status       ChangeStatus `json:"status"`
	PendingCount int          `json:"pendingCount"`
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Total     int       `json:"total"`
	New       int       `json:"new"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	Timestamp time.Time `json:"timestamp"`
}

// PageInfo identifies one organizational page in the remote file.
type PageInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
