package tracker_test

import (
	"errors"
	"testing"
	"time"

	"copydeck/internal/database"
	"copydeck/internal/imagestore"
	"copydeck/internal/secrets"
	"copydeck/internal/testutil"
	"copydeck/internal/tracker"
)

// testService wires a Service against in-memory implementations of
// every dependency, with a deterministic clock and id sequence.
type testService struct {
	svc      *tracker.Service
	store    *database.SQLiteStore
	provider *testutil.StubProvider
	images   *imagestore.MemoryStore
	cipher   *secrets.PlainCipher
	clock    *testutil.FixedClock
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	store := testutil.NewTestStore(t)
	provider := &testutil.StubProvider{}
	images := imagestore.NewMemoryStore()
	cipher := secrets.NewPlainCipher()
	clock := &testutil.FixedClock{T: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := tracker.NewService(store, provider, images, cipher, tracker.NewNopLogger(), clock, &testutil.SeqIDGenerator{})
	return &testService{
		svc:      svc,
		store:    store,
		provider: provider,
		images:   images,
		cipher:   cipher,
		clock:    clock,
	}
}

func (e *testService) createProject(t *testing.T, in tracker.ProjectInput) string {
	t.Helper()
	if in.Name == "" {
		in.Name = "Site"
	}
	if in.FileKey == "" {
		in.FileKey = "abc123"
	}
	if in.Token == "" {
		in.Token = "figd_secret"
	}
	p, err := e.svc.CreateProject(in)
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p.ID
}

func TestService_CreateProject(t *testing.T) {
	t.Run("persists project with encrypted token", func(t *testing.T) {
		e := newTestService(t)

		p, err := e.svc.CreateProject(tracker.ProjectInput{
			Name: "Site", FileKey: "abc123", Token: "figd_secret",
		})
		if err != nil {
			t.Fatalf("CreateProject() error = %v", err)
		}

		stored, err := e.store.GetProject(p.ID)
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		if stored == nil {
			t.Fatal("project not found in store")
		}
		if stored.Token == "figd_secret" {
			t.Error("token stored in cleartext")
		}
		token, err := e.cipher.Decrypt(stored.Token)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if token != "figd_secret" {
			t.Errorf("decrypted token = %q, want %q", token, "figd_secret")
		}
	})

	t.Run("extracts file key from shareable URL", func(t *testing.T) {
		e := newTestService(t)

		p, err := e.svc.CreateProject(tracker.ProjectInput{
			Name:    "Site",
			FileKey: "https://www.figma.com/design/Qm3XyZ9/Landing-Page?node-id=1-2",
			Token:   "figd_secret",
		})
		if err != nil {
			t.Fatalf("CreateProject() error = %v", err)
		}
		if p.FileKey != "Qm3XyZ9" {
			t.Errorf("file key = %q, want %q", p.FileKey, "Qm3XyZ9")
		}
	})

	t.Run("rejects unrecognized URL", func(t *testing.T) {
		e := newTestService(t)

		_, err := e.svc.CreateProject(tracker.ProjectInput{
			Name: "Site", FileKey: "https://example.com/whatever", Token: "tok",
		})
		var verr *tracker.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("CreateProject() error = %v, want ValidationError", err)
		}
		if verr.Field != "fileKey" {
			t.Errorf("validation field = %q, want fileKey", verr.Field)
		}
	})

	t.Run("validates required fields", func(t *testing.T) {
		e := newTestService(t)

		tests := []struct {
			name  string
			in    tracker.ProjectInput
			field string
		}{
			{"missing name", tracker.ProjectInput{FileKey: "k", Token: "t"}, "name"},
			{"missing file key", tracker.ProjectInput{Name: "n", Token: "t"}, "fileKey"},
			{"missing token", tracker.ProjectInput{Name: "n", FileKey: "k"}, "token"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := e.svc.CreateProject(tt.in)
				var verr *tracker.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("CreateProject() error = %v, want ValidationError", err)
				}
				if verr.Field != tt.field {
					t.Errorf("validation field = %q, want %q", verr.Field, tt.field)
				}
			})
		}
	})
}

func TestService_UpdateProject(t *testing.T) {
	t.Run("applies partial update", func(t *testing.T) {
		e := newTestService(t)
		id := e.createProject(t, tracker.ProjectInput{})

		name := "Renamed"
		frames := []string{"f:1", "f:2"}
		p, err := e.svc.UpdateProject(id, tracker.ProjectUpdate{Name: &name, IncludedFrames: &frames})
		if err != nil {
			t.Fatalf("UpdateProject() error = %v", err)
		}
		if p.Name != "Renamed" {
			t.Errorf("name = %q, want Renamed", p.Name)
		}
		if len(p.IncludedFrames) != 2 {
			t.Errorf("included frames = %v, want 2 entries", p.IncludedFrames)
		}
		if p.FileKey != "abc123" {
			t.Errorf("file key = %q, unchanged fields must survive", p.FileKey)
		}
	})

	t.Run("re-encrypts a new token", func(t *testing.T) {
		e := newTestService(t)
		id := e.createProject(t, tracker.ProjectInput{})

		token := "figd_rotated"
		if _, err := e.svc.UpdateProject(id, tracker.ProjectUpdate{Token: &token}); err != nil {
			t.Fatalf("UpdateProject() error = %v", err)
		}

		stored, _ := e.store.GetProject(id)
		got, err := e.cipher.Decrypt(stored.Token)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if got != "figd_rotated" {
			t.Errorf("decrypted token = %q, want figd_rotated", got)
		}
	})

	t.Run("unknown project is not found", func(t *testing.T) {
		e := newTestService(t)
		name := "x"
		_, err := e.svc.UpdateProject("nope", tracker.ProjectUpdate{Name: &name})
		if !errors.Is(err, tracker.ErrNotFound) {
			t.Errorf("UpdateProject() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_ArchiveRestoreDelete(t *testing.T) {
	t.Run("archived project disappears from reads", func(t *testing.T) {
		e := newTestService(t)
		id := e.createProject(t, tracker.ProjectInput{})

		if err := e.svc.ArchiveProject(id); err != nil {
			t.Fatalf("ArchiveProject() error = %v", err)
		}
		if _, err := e.svc.GetProject(id); !errors.Is(err, tracker.ErrNotFound) {
			t.Errorf("GetProject() after archive error = %v, want ErrNotFound", err)
		}

		projects, err := e.svc.ListProjects(false)
		if err != nil {
			t.Fatalf("ListProjects() error = %v", err)
		}
		if len(projects) != 0 {
			t.Errorf("ListProjects(false) = %d projects, want 0", len(projects))
		}

		all, err := e.svc.ListProjects(true)
		if err != nil {
			t.Fatalf("ListProjects(true) error = %v", err)
		}
		if len(all) != 1 || !all[0].Archived {
			t.Errorf("ListProjects(true) = %+v, want one archived project", all)
		}
	})

	t.Run("restore brings an archived project back", func(t *testing.T) {
		e := newTestService(t)
		id := e.createProject(t, tracker.ProjectInput{})

		if err := e.svc.ArchiveProject(id); err != nil {
			t.Fatalf("ArchiveProject() error = %v", err)
		}
		if err := e.svc.RestoreProject(id); err != nil {
			t.Fatalf("RestoreProject() error = %v", err)
		}
		if _, err := e.svc.GetProject(id); err != nil {
			t.Errorf("GetProject() after restore error = %v", err)
		}
	})

	t.Run("delete is permanent", func(t *testing.T) {
		e := newTestService(t)
		id := e.createProject(t, tracker.ProjectInput{})

		if err := e.svc.DeleteProject(id); err != nil {
			t.Fatalf("DeleteProject() error = %v", err)
		}
		if err := e.svc.RestoreProject(id); !errors.Is(err, tracker.ErrNotFound) {
			t.Errorf("RestoreProject() after delete error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_DefaultToken(t *testing.T) {
	e := newTestService(t)

	has, err := e.svc.HasDefaultToken()
	if err != nil {
		t.Fatalf("HasDefaultToken() error = %v", err)
	}
	if has {
		t.Error("HasDefaultToken() = true before any token is set")
	}

	if err := e.svc.SetDefaultToken("figd_default"); err != nil {
		t.Fatalf("SetDefaultToken() error = %v", err)
	}

	has, err = e.svc.HasDefaultToken()
	if err != nil {
		t.Fatalf("HasDefaultToken() error = %v", err)
	}
	if !has {
		t.Error("HasDefaultToken() = false after set")
	}

	token, err := e.svc.DefaultToken()
	if err != nil {
		t.Fatalf("DefaultToken() error = %v", err)
	}
	if token != "figd_default" {
		t.Errorf("DefaultToken() = %q, want figd_default", token)
	}

	// The stored value must not be the cleartext token.
	raw, err := e.store.GetSetting("default_token")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if raw == "figd_default" {
		t.Error("default token stored in cleartext")
	}
}

func TestNormalizeFileKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare key passes through", "abc123", "abc123", false},
		{"design URL", "https://www.figma.com/design/Qm3XyZ9/Landing", "Qm3XyZ9", false},
		{"file URL", "https://www.figma.com/file/Qm3XyZ9/Landing", "Qm3XyZ9", false},
		{"proto URL", "https://www.figma.com/proto/Qm3XyZ9/Landing?page-id=0", "Qm3XyZ9", false},
		{"unrecognized URL", "https://example.com/file/abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tracker.NormalizeFileKey(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeFileKey(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeFileKey(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeFileKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
