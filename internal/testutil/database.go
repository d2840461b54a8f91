// Package testutil provides shared helpers for tests: an in-memory
// migrated store, a stub provider, and deterministic clock and id
// implementations.
package testutil

import (
	"testing"

	"copydeck/internal/database"
)

// NewTestStore creates an in-memory SQLite store with all migrations
// applied. The store is closed automatically when the test ends.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrating test store: %v", err)
	}
	return store
}
