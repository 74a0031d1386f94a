// Package testutil provides shared test helpers for setting up content trees
// and build manifests.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/storage"
)

// TestManifest creates a temporary SQLite manifest that is automatically
// cleaned up.
func TestManifest(t *testing.T) *manifest.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := manifest.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTree creates a temporary content directory with a storage.Provider.
func TestTree(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
