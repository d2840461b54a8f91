package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"copydeck/internal/database/migrations"
	"copydeck/internal/model"
	"copydeck/internal/tracker"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the tracker.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// Exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// Migrate brings the schema to the latest version. Any migration error
// is fatal; nothing is swallowed.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Project operations

const projectCols = `id, name, file_key, token, included_frames, source_page_ids,
	last_sync, last_export, archived, created_at, updated_at`

func (s *SQLiteStore) CreateProject(p *model.Project) error {
	_, err := s.db.Exec(`
		INSERT INTO projects (`+projectCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.FileKey, p.Token,
		encodeIDList(p.IncludedFrames), encodeIDList(p.SourcePageIDs),
		nullTime(p.LastSync), nullTime(p.LastExport),
		boolToInt(p.Archived), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProject(id string) (*model.Project, error) {
	row := s.db.QueryRow(`SELECT `+projectCols+` FROM projects WHERE id = ? AND archived = 0`, id)
	return scanProject(row)
}

func (s *SQLiteStore) GetProjectAny(id string) (*model.Project, error) {
	row := s.db.QueryRow(`SELECT `+projectCols+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func (s *SQLiteStore) ListProjects(includeArchived bool) ([]*model.Project, error) {
	query := `SELECT ` + projectCols + ` FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) UpdateProject(id string, upd tracker.ProjectUpdate, now time.Time) (*model.Project, error) {
	existing, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	var sets []string
	var args []any

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.FileKey != nil {
		sets = append(sets, "file_key = ?")
		args = append(args, *upd.FileKey)
	}
	if upd.Token != nil {
		sets = append(sets, "token = ?")
		args = append(args, *upd.Token)
	}
	if upd.IncludedFrames != nil {
		sets = append(sets, "included_frames = ?")
		args = append(args, encodeIDList(*upd.IncludedFrames))
	}
	if upd.SourcePageIDs != nil {
		sets = append(sets, "source_page_ids = ?")
		args = append(args, encodeIDList(*upd.SourcePageIDs))
	}
	if len(sets) == 0 {
		return existing, nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	_, err = s.db.Exec(`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return s.GetProject(id)
}

func (s *SQLiteStore) SetProjectLastSync(id string, t time.Time) error {
	_, err := s.db.Exec(`UPDATE projects SET last_sync = ?, updated_at = ? WHERE id = ?`, t, t, id)
	if err != nil {
		return fmt.Errorf("updating last sync: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ArchiveProject(id string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE projects SET archived = 1, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("archiving project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RestoreProject(id string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE projects SET archived = 0, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("restoring project: %w", err)
	}
	return nil
}

// DeleteProject cascades to owned text blocks and frames in one
// transaction so a crash cannot leave orphaned rows.
func (s *SQLiteStore) DeleteProject(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM text_blocks WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("deleting text blocks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM frames WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("deleting frames: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Text block operations

const blockCols = `id, project_id, page_id, page_name,
	frame_id, frame_name, frame_x, frame_y, frame_width, frame_height,
	content, style, font_size, x, y, width, height, content_hash,
	change_status, previous_content, previous_style, previous_x, previous_y,
	previous_width, previous_height, previous_content_hash,
	change_detected_at, change_accepted_at, missing_since,
	last_modified, created_at`

func (s *SQLiteStore) GetTextBlock(id string) (*model.TextBlock, error) {
	row := s.db.QueryRow(`SELECT `+blockCols+` FROM text_blocks WHERE id = ?`, id)
	return scanTextBlock(row)
}

func (s *SQLiteStore) ListTextBlocks(f tracker.BlockFilter) ([]*model.TextBlock, error) {
	query := `SELECT ` + blockCols + ` FROM text_blocks`
	var conds []string
	var args []any

	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Since != nil {
		conds = append(conds, "last_modified >= ?")
		args = append(args, *f.Since)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY page_name, last_modified DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing text blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*model.TextBlock
	for rows.Next() {
		b, err := scanTextBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *SQLiteStore) InsertTextBlock(b *model.TextBlock) error {
	frame := frameFields(b.Frame)
	_, err := s.db.Exec(`
		INSERT INTO text_blocks (id, project_id, page_id, page_name,
			frame_id, frame_name, frame_x, frame_y, frame_width, frame_height,
			content, style, font_size, x, y, width, height, content_hash,
			change_status, last_modified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ProjectID, b.PageID, b.PageName,
		frame.id, frame.name, frame.x, frame.y, frame.width, frame.height,
		b.Content, b.Style, b.FontSize, b.X, b.Y, b.Width, b.Height, b.Fingerprint,
		string(model.ChangeClean), b.LastModified, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting text block: %w", err)
	}
	return nil
}

// RecordChange captures the baseline and applies the new values in a
// single statement. SQL UPDATE right-hand sides read the pre-update
// row, so previous_* receives the values that were current before this
// change, atomically.
func (s *SQLiteStore) RecordChange(b *model.TextBlock, detectedAt time.Time) error {
	frame := frameFields(b.Frame)
	res, err := s.db.Exec(`
		UPDATE text_blocks SET
			previous_content = content,
			previous_style = style,
			previous_x = x,
			previous_y = y,
			previous_width = width,
			previous_height = height,
			previous_content_hash = content_hash,
			page_id = ?, page_name = ?,
			frame_id = ?, frame_name = ?, frame_x = ?, frame_y = ?,
			frame_width = ?, frame_height = ?,
			content = ?, style = ?, font_size = ?,
			x = ?, y = ?, width = ?, height = ?,
			content_hash = ?,
			change_status = 'pending',
			change_detected_at = ?,
			change_accepted_at = NULL,
			missing_since = NULL,
			last_modified = ?
		WHERE id = ? AND project_id = ?`,
		b.PageID, b.PageName,
		frame.id, frame.name, frame.x, frame.y, frame.width, frame.height,
		b.Content, b.Style, b.FontSize,
		b.X, b.Y, b.Width, b.Height,
		b.Fingerprint,
		detectedAt,
		b.LastModified,
		b.ID, b.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("recording change: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording change: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recording change: block %s not found", b.ID)
	}
	return nil
}

func (s *SQLiteStore) TouchUnchanged(b *model.TextBlock, lastModified time.Time) error {
	frame := frameFields(b.Frame)
	_, err := s.db.Exec(`
		UPDATE text_blocks SET
			page_id = ?, page_name = ?,
			frame_id = ?, frame_name = ?, frame_x = ?, frame_y = ?,
			frame_width = ?, frame_height = ?,
			missing_since = NULL,
			last_modified = ?
		WHERE id = ? AND project_id = ?`,
		b.PageID, b.PageName,
		frame.id, frame.name, frame.x, frame.y, frame.width, frame.height,
		lastModified,
		b.ID, b.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("touching text block: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkMissingExcept(projectID string, seen []string, now time.Time) error {
	query := `UPDATE text_blocks SET missing_since = ? WHERE project_id = ? AND missing_since IS NULL`
	args := []any{now, projectID}

	if len(seen) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(", ?", len(seen)-1) + `)`
		for _, id := range seen {
			args = append(args, id)
		}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("marking missing blocks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AcceptChange(projectID, blockID string, now time.Time) (bool, error) {
	res, err := s.db.Exec(acceptSQL+` AND id = ?`, now, projectID, blockID)
	if err != nil {
		return false, fmt.Errorf("accepting change: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accepting change: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) AcceptAllChanges(projectID string, now time.Time) (int, error) {
	res, err := s.db.Exec(acceptSQL, now, projectID)
	if err != nil {
		return 0, fmt.Errorf("accepting all changes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("accepting all changes: %w", err)
	}
	return int(n), nil
}

// acceptSQL transitions pending rows to accepted and drops the baseline
// in one statement.
const acceptSQL = `
	UPDATE text_blocks SET
		change_status = 'accepted',
		change_accepted_at = ?,
		previous_content = NULL,
		previous_style = NULL,
		previous_x = NULL,
		previous_y = NULL,
		previous_width = NULL,
		previous_height = NULL,
		previous_content_hash = NULL
	WHERE project_id = ? AND change_status = 'pending'`

// CommitExport is the only path that returns a block to clean from a
// non-clean state.
func (s *SQLiteStore) CommitExport(projectID string, exportedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE text_blocks SET change_status = 'clean', change_accepted_at = NULL
		WHERE project_id = ? AND change_status = 'accepted'`, projectID)
	if err != nil {
		return fmt.Errorf("marking accepted blocks clean: %w", err)
	}

	_, err = tx.Exec(`UPDATE projects SET last_export = ?, updated_at = ? WHERE id = ?`,
		exportedAt, exportedAt, projectID)
	if err != nil {
		return fmt.Errorf("updating last export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Frame operations

const frameCols = `id, project_id, name, image_ref, x, y, width, height, last_synced, created_at`

func (s *SQLiteStore) UpsertFrame(f *model.Frame) error {
	_, err := s.db.Exec(`
		INSERT INTO frames (`+frameCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			image_ref = excluded.image_ref,
			x = excluded.x,
			y = excluded.y,
			width = excluded.width,
			height = excluded.height,
			last_synced = excluded.last_synced`,
		f.ID, f.ProjectID, f.Name, f.ImageRef,
		f.X, f.Y, f.Width, f.Height, f.LastSynced, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting frame: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFrame(id string) (*model.Frame, error) {
	row := s.db.QueryRow(`SELECT `+frameCols+` FROM frames WHERE id = ?`, id)
	f, err := scanFrame(row)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SQLiteStore) ListFramesByProject(projectID string) ([]*model.Frame, error) {
	rows, err := s.db.Query(`SELECT `+frameCols+` FROM frames WHERE project_id = ? ORDER BY y, x`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing frames: %w", err)
	}
	defer rows.Close()

	var frames []*model.Frame
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// Settings operations

func (s *SQLiteStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(key, value string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now, now,
	)
	if err != nil {
		return fmt.Errorf("writing setting: %w", err)
	}
	return nil
}

// Scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var includedFrames, sourcePageIDs string
	var lastSync, lastExport sql.NullTime
	var archived int

	err := row.Scan(&p.ID, &p.Name, &p.FileKey, &p.Token,
		&includedFrames, &sourcePageIDs,
		&lastSync, &lastExport, &archived, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.IncludedFrames = decodeIDList(includedFrames)
	p.SourcePageIDs = decodeIDList(sourcePageIDs)
	p.LastSync = timePtr(lastSync)
	p.LastExport = timePtr(lastExport)
	p.Archived = archived != 0
	return &p, nil
}

func scanTextBlock(row rowScanner) (*model.TextBlock, error) {
	var b model.TextBlock
	var status string
	var frameID, frameName sql.NullString
	var frameX, frameY, frameW, frameH sql.NullFloat64
	var prevContent, prevStyle, prevHash sql.NullString
	var prevX, prevY, prevW, prevH sql.NullFloat64
	var detectedAt, acceptedAt, missingSince sql.NullTime

	err := row.Scan(&b.ID, &b.ProjectID, &b.PageID, &b.PageName,
		&frameID, &frameName, &frameX, &frameY, &frameW, &frameH,
		&b.Content, &b.Style, &b.FontSize, &b.X, &b.Y, &b.Width, &b.Height, &b.Fingerprint,
		&status, &prevContent, &prevStyle, &prevX, &prevY, &prevW, &prevH, &prevHash,
		&detectedAt, &acceptedAt, &missingSince,
		&b.LastModified, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning text block: %w", err)
	}

	b.Status = model.ChangeStatus(status)
	if frameID.Valid {
		b.Frame = &model.FrameRef{
			ID:     frameID.String,
			Name:   frameName.String,
			X:      frameX.Float64,
			Y:      frameY.Float64,
			Width:  frameW.Float64,
			Height: frameH.Float64,
		}
	}
	if prevHash.Valid {
		b.Previous = &model.Snapshot{
			Content:     prevContent.String,
			Style:       prevStyle.String,
			X:           prevX.Float64,
			Y:           prevY.Float64,
			Width:       prevW.Float64,
			Height:      prevH.Float64,
			Fingerprint: prevHash.String,
		}
	}
	b.ChangeDetectedAt = timePtr(detectedAt)
	b.ChangeAcceptedAt = timePtr(acceptedAt)
	b.MissingSince = timePtr(missingSince)
	return &b, nil
}

func scanFrame(row rowScanner) (*model.Frame, error) {
	var f model.Frame
	err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.ImageRef,
		&f.X, &f.Y, &f.Width, &f.Height, &f.LastSynced, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning frame: %w", err)
	}
	return &f, nil
}

// nullableFrame is the column group for a block's optional frame linkage.
type nullableFrame struct {
	id, name           sql.NullString
	x, y, width, height sql.NullFloat64
}

func frameFields(ref *model.FrameRef) nullableFrame {
	if ref == nil {
		return nullableFrame{}
	}
	return nullableFrame{
		id:     sql.NullString{String: ref.ID, Valid: true},
		name:   sql.NullString{String: ref.Name, Valid: true},
		x:      sql.NullFloat64{Float64: ref.X, Valid: true},
		y:      sql.NullFloat64{Float64: ref.Y, Valid: true},
		width:  sql.NullFloat64{Float64: ref.Width, Valid: true},
		height: sql.NullFloat64{Float64: ref.Height, Valid: true},
	}
}

// encodeIDList serializes an allow-list for storage as an opaque text
// column. nil and empty both encode as "[]" (include all).
func encodeIDList(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// decodeIDList parses a stored allow-list. A row that fails to decode
// behaves as the empty list, which means include all.
func decodeIDList(raw string) []string {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time check that SQLiteStore implements the tracker.Store interface
var _ tracker.Store = (*SQLiteStore)(nil)
