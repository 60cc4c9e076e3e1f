//go:build sqlite_fts5

package index

import (
	"testing"
	"time"

	"github.com/starford/hugopub/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM articles_fts`).Scan(&count); err != nil {
		t.Fatalf("articles_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	a := models.Article{
		Path:      "content/posts/fts.md",
		Name:      "fts.md",
		Title:     "FTS Post",
		Checksum:  "f1",
		Tags:      []string{"search"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertArticle(a, "Hugo sites deserve powerful full-text search."); err != nil {
		t.Fatalf("UpsertArticle: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "content/posts/fts.md" || results[0].Snippet == "" {
		t.Errorf("result = %+v", results[0])
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertArticle(models.Article{Path: "gone.md", Name: "gone.md", Checksum: "g", UpdatedAt: time.Now()}, "vanishing content")
	_ = db.DeleteArticle("gone.md")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted article still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertArticle(models.Article{Path: "evo.md", Name: "evo.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "original text")
	_ = db.UpsertArticle(models.Article{Path: "evo.md", Name: "evo.md", Title: "New", Checksum: "2", UpdatedAt: now}, "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
