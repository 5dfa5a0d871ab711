// Package testutil provides databases for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"todoAPI/repository"
)

// NewSQLiteStore opens a fresh SQLite database in a temp dir that is removed
// when the test ends.
func NewSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	store, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "todo.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	return store
}
