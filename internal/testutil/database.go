package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// SetupTestDB creates a migrated SQLite store in a temp directory and
// registers cleanup with the test.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
