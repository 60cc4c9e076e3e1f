// Package testutil provides shared test helpers for setting up content
// repositories and index databases.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// DB creates a temporary SQLite index that is closed on cleanup.
func DB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Repo creates a git-backed content repository in a temporary directory.
func Repo(t *testing.T) *storage.Repo {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo, err := storage.OpenRepo(fs, storage.Author{Name: "test", Email: "test@example.com"}, Logger())
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

// Eventually polls fn until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out: %s", msg)
}
