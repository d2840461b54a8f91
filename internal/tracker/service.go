package tracker

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"copydeck/internal/model"
)

// Service is the orchestration layer that coordinates the store, the
// remote provider, the image store, and the token cipher to perform the
// high-level operations exposed to the CLI and the HTTP API.
type Service struct {
	store    Store
	provider Provider
	images   ImageStore
	tokens   TokenCipher
	logger   Logger
	clock    Clock
	idgen    IDGenerator

	// per-project sync exclusion: a second sync for the same project
	// while one is running fails with ErrSyncInProgress.
	mu      sync.Mutex
	syncing map[string]bool
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, provider Provider, images ImageStore, tokens TokenCipher, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		store:    store,
		provider: provider,
		images:   images,
		tokens:   tokens,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		syncing:  make(map[string]bool),
	}
}

// ProjectInput is the payload for creating or updating a project.
type ProjectInput struct {
	Name           string
	FileKey        string
	Token          string
	IncludedFrames []string
	SourcePageIDs  []string
}

// CreateProject validates the input, encrypts the token, and persists a
// new project.
func (s *Service) CreateProject(in ProjectInput) (*model.Project, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "project name is required"}
	}
	if in.FileKey == "" {
		return nil, &ValidationError{Field: "fileKey", Message: "remote file key is required"}
	}
	if in.Token == "" {
		return nil, &ValidationError{Field: "token", Message: "remote access token is required"}
	}

	fileKey, err := NormalizeFileKey(in.FileKey)
	if err != nil {
		return nil, err
	}
	in.FileKey = fileKey

	sealed, err := s.tokens.Encrypt(in.Token)
	if err != nil {
		return nil, fmt.Errorf("encrypting token: %w", err)
	}

	now := s.clock.Now()
	project := &model.Project{
		ID:             s.idgen.New(),
		Name:           in.Name,
		FileKey:        in.FileKey,
		Token:          sealed,
		IncludedFrames: in.IncludedFrames,
		SourcePageIDs:  in.SourcePageIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateProject(project); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created", "project", project.ID, "name", project.Name)
	return project, nil
}

// GetProject returns a non-archived project by id.
func (s *Service) GetProject(id string) (*model.Project, error) {
	project, err := s.store.GetProject(id)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return project, nil
}

// ListProjects returns all projects, optionally including archived ones.
func (s *Service) ListProjects(includeArchived bool) ([]*model.Project, error) {
	return s.store.ListProjects(includeArchived)
}

// UpdateProject applies a partial settings edit. A non-nil token is
// encrypted before it reaches the store.
func (s *Service) UpdateProject(id string, upd ProjectUpdate) (*model.Project, error) {
	if upd.Name != nil && *upd.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "project name cannot be empty"}
	}
	if upd.FileKey != nil {
		if *upd.FileKey == "" {
			return nil, &ValidationError{Field: "fileKey", Message: "file key cannot be empty"}
		}
		key, err := NormalizeFileKey(*upd.FileKey)
		if err != nil {
			return nil, err
		}
		upd.FileKey = &key
	}
	if upd.Token != nil {
		if *upd.Token == "" {
			return nil, &ValidationError{Field: "token", Message: "token cannot be empty"}
		}
		sealed, err := s.tokens.Encrypt(*upd.Token)
		if err != nil {
			return nil, fmt.Errorf("encrypting token: %w", err)
		}
		upd.Token = &sealed
	}

	project, err := s.store.UpdateProject(id, upd, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return project, nil
}

// ArchiveProject soft-deletes a project; it disappears from listings
// but keeps its blocks and frames.
func (s *Service) ArchiveProject(id string) error {
	project, err := s.store.GetProject(id)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return s.store.ArchiveProject(id, s.clock.Now())
}

// RestoreProject brings an archived project back.
func (s *Service) RestoreProject(id string) error {
	project, err := s.store.GetProjectAny(id)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return s.store.RestoreProject(id, s.clock.Now())
}

// DeleteProject hard-deletes a project and everything it owns.
func (s *Service) DeleteProject(id string) error {
	project, err := s.store.GetProjectAny(id)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err := s.store.DeleteProject(id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	s.logger.Info("project deleted", "project", id)
	return nil
}

// Sync pulls the remote document for one project, classifies every
// extracted text item against stored state, refreshes frame metadata
// and preview images, and stamps the project's last_sync.
//
// Step order bounds the partial-failure window: block writes happen
// first, then missing stamping, then frame/image upserts, and the
// last_sync update is the final step, so a failed sync leaves last_sync
// untouched and a retry re-derives everything idempotently.
func (s *Service) Sync(ctx context.Context, projectID string) (*model.SyncResult, error) {
	if !s.beginSync(projectID) {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrSyncInProgress)
	}
	defer s.endSync(projectID)

	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	token, err := s.tokens.Decrypt(project.Token)
	if err != nil {
		return nil, fmt.Errorf("decrypting token: %w", err)
	}

	file, err := s.provider.FetchFile(ctx, project.FileKey, token)
	if err != nil {
		return nil, err
	}

	items := ExtractTextItems(file, project.SourcePageIDs)
	items = filterByFrames(items, project.IncludedFrames)

	timestamp := s.clock.Now()
	result := &model.SyncResult{Total: len(items), Timestamp: timestamp}

	seen := make([]string, 0, len(items))
	frames := make(map[string]*model.FrameRef)

	for i := range items {
		item := &items[i]
		seen = append(seen, item.ID)
		if item.Frame != nil {
			frames[item.Frame.ID] = item.Frame
		}

		if err := s.classify(project.ID, item, timestamp, result); err != nil {
			return nil, err
		}
	}

	if err := s.store.MarkMissingExcept(project.ID, seen, timestamp); err != nil {
		return nil, fmt.Errorf("marking missing blocks: %w", err)
	}

	if err := s.refreshFrames(ctx, project, token, frames, timestamp); err != nil {
		return nil, err
	}

	if err := s.store.SetProjectLastSync(project.ID, timestamp); err != nil {
		return nil, fmt.Errorf("updating last sync: %w", err)
	}

	s.logger.Info("sync complete",
		"project", project.ID,
		"total", result.Total,
		"new", result.New,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
	)
	return result, nil
}

// classify decides New / Changed / Unchanged for one extracted item and
// persists accordingly. Items that disappeared from the source are
// handled separately by MarkMissingExcept.
func (s *Service) classify(projectID string, item *ExtractedText, timestamp time.Time, result *model.SyncResult) error {
	fingerprint := Fingerprint(item.Content, item.Style, item.X, item.Y)

	block := &model.TextBlock{
		ID:          item.ID,
		ProjectID:   projectID,
		PageID:      item.PageID,
		PageName:    item.PageName,
		Frame:       item.Frame,
		Content:     item.Content,
		Style:       item.Style,
		FontSize:    item.FontSize,
		X:           item.X,
		Y:           item.Y,
		Width:       item.Width,
		Height:      item.Height,
		Fingerprint: fingerprint,
	}

	existing, err := s.store.GetTextBlock(item.ID)
	if err != nil {
		return fmt.Errorf("loading block %s: %w", item.ID, err)
	}

	switch {
	case existing == nil:
		block.Status = model.ChangeClean
		block.LastModified = timestamp
		block.CreatedAt = timestamp
		if err := s.store.InsertTextBlock(block); err != nil {
			return fmt.Errorf("inserting block %s: %w", item.ID, err)
		}
		result.New++

	case existing.Fingerprint != fingerprint:
		// The store copies the pre-update row into previous_* in the
		// same statement, so the baseline is always "last seen before
		// this change" even if the block was already pending or accepted.
		block.LastModified = timestamp
		if err := s.store.RecordChange(block, timestamp); err != nil {
			return fmt.Errorf("recording change for block %s: %w", item.ID, err)
		}
		result.Updated++

	default:
		if err := s.store.TouchUnchanged(block, timestamp); err != nil {
			return fmt.Errorf("touching block %s: %w", item.ID, err)
		}
		result.Unchanged++
	}
	return nil
}

// filterByFrames applies the project's frame allow-list. An empty list
// includes everything; a non-empty list drops items whose frame is not
// listed but always keeps items outside any frame.
func filterByFrames(items []ExtractedText, included []string) []ExtractedText {
	if len(included) == 0 {
		return items
	}
	allowed := make(map[string]bool, len(included))
	for _, id := range included {
		allowed[id] = true
	}

	kept := items[:0]
	for _, item := range items {
		if item.Frame == nil || allowed[item.Frame.ID] {
			kept = append(kept, item)
		}
	}
	return kept
}

// refreshFrames upserts metadata and preview images for every frame the
// surviving items referenced. Images are always refreshed, never diffed.
// Skipped entirely when the sync observed no frames.
func (s *Service) refreshFrames(ctx context.Context, project *model.Project, token string, frames map[string]*model.FrameRef, timestamp time.Time) error {
	if len(frames) == 0 {
		return nil
	}

	ids := make([]string, 0, len(frames))
	for id := range frames {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	urls, err := s.provider.FetchPreviewImages(ctx, project.FileKey, token, ids)
	if err != nil {
		return err
	}

	for _, id := range ids {
		ref := frames[id]
		imageRef := ""
		if url := urls[id]; url != "" {
			imageRef, err = s.storeFrameImage(ctx, id, url)
			if err != nil {
				return err
			}
		}

		frame := &model.Frame{
			ID:         id,
			ProjectID:  project.ID,
			Name:       ref.Name,
			ImageRef:   imageRef,
			X:          ref.X,
			Y:          ref.Y,
			Width:      ref.Width,
			Height:     ref.Height,
			LastSynced: timestamp,
			CreatedAt:  timestamp,
		}
		if err := s.store.UpsertFrame(frame); err != nil {
			return fmt.Errorf("upserting frame %s: %w", id, err)
		}
	}
	return nil
}

// storeFrameImage downloads one rendered preview and hands it to the
// image store, returning the store's reference.
func (s *Service) storeFrameImage(ctx context.Context, frameID, url string) (string, error) {
	body, size, err := s.provider.DownloadImage(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	ref, err := s.images.Put(frameID, body, size)
	if err != nil {
		return "", fmt.Errorf("storing image for frame %s: %w", frameID, err)
	}
	return ref, nil
}

func (s *Service) beginSync(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing[projectID] {
		return false
	}
	s.syncing[projectID] = true
	return true
}

func (s *Service) endSync(projectID string) {
	s.mu.Lock()
	delete(s.syncing, projectID)
	s.mu.Unlock()
}

// ListFrames returns the project's frames decorated with their derived
// review rollups.
func (s *Service) ListFrames(projectID string) ([]*model.FrameWithStatus, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	frames, err := s.store.ListFramesByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("listing frames: %w", err)
	}
	blocks, err := s.store.ListTextBlocks(BlockFilter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}

	out := make([]*model.FrameWithStatus, len(frames))
	for i, f := range frames {
		out[i] = ComputeFrameStatus(f, blocks)
	}
	return out, nil
}

// ProjectStatus derives the project-level rollup from live block state.
func (s *Service) ProjectStatus(projectID string) (model.ProjectStatus, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return "", fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return "", fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	blocks, err := s.store.ListTextBlocks(BlockFilter{ProjectID: projectID})
	if err != nil {
		return "", fmt.Errorf("listing blocks: %w", err)
	}
	return ComputeProjectStatus(blocks, project.LastExport), nil
}

// ListPages fetches the remote file and returns its organizational
// pages, for scope-filter configuration in the UI.
func (s *Service) ListPages(ctx context.Context, projectID string) ([]model.PageInfo, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	token, err := s.tokens.Decrypt(project.Token)
	if err != nil {
		return nil, fmt.Errorf("decrypting token: %w", err)
	}

	file, err := s.provider.FetchFile(ctx, project.FileKey, token)
	if err != nil {
		return nil, err
	}

	pages := make([]model.PageInfo, 0, len(file.Document.Children))
	for _, child := range file.Document.Children {
		if child.Type != "CANVAS" {
			continue
		}
		pages = append(pages, model.PageInfo{ID: child.ID, Name: child.Name})
	}
	return pages, nil
}

// fileKeyPatterns match the shareable URL forms a file key can arrive in.
var fileKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`figma\.com/design/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`figma\.com/file/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`figma\.com/proto/([a-zA-Z0-9]+)`),
}

// NormalizeFileKey accepts either a bare file key or a shareable file
// URL and returns the key.
func NormalizeFileKey(input string) (string, error) {
	if !strings.HasPrefix(input, "http") {
		return input, nil
	}
	for _, p := range fileKeyPatterns {
		if m := p.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}
	return "", &ValidationError{Field: "fileKey", Message: "unrecognized file URL"}
}

// settingDefaultToken stores an app-wide fallback access token,
// encrypted like project tokens.
const settingDefaultToken = "default_token"

// SetDefaultToken encrypts and stores the app-wide fallback token.
func (s *Service) SetDefaultToken(token string) error {
	if token == "" {
		return &ValidationError{Field: "token", Message: "token cannot be empty"}
	}
	sealed, err := s.tokens.Encrypt(token)
	if err != nil {
		return fmt.Errorf("encrypting token: %w", err)
	}
	return s.store.SetSetting(settingDefaultToken, sealed, s.clock.Now())
}

// HasDefaultToken reports whether a fallback token is configured.
func (s *Service) HasDefaultToken() (bool, error) {
	v, err := s.store.GetSetting(settingDefaultToken)
	if err != nil {
		return false, err
	}
	return v != "", nil
}

// DefaultToken returns the decrypted fallback token, or "" if unset.
func (s *Service) DefaultToken() (string, error) {
	sealed, err := s.store.GetSetting(settingDefaultToken)
	if err != nil {
		return "", err
	}
	if sealed == "" {
		return "", nil
	}
	token, err := s.tokens.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("decrypting default token: %w", err)
	}
	return token, nil
}

// FrameImage streams a frame's stored preview image to w.
func (s *Service) FrameImage(frameID string, w io.Writer) error {
	frame, err := s.store.GetFrame(frameID)
	if err != nil {
		return fmt.Errorf("loading frame: %w", err)
	}
	if frame == nil || frame.ImageRef == "" {
		return fmt.Errorf("frame image %s: %w", frameID, ErrNotFound)
	}
	return s.images.Get(frameID, w)
}
