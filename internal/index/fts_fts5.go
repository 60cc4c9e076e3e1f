//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/hugopub/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tags,
			categories,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, a models.Article, body string) error {
	if _, err := tx.Exec(`DELETE FROM articles_fts WHERE path = ?`, a.Path); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	_, err := tx.Exec(`INSERT INTO articles_fts (path, title, body, tags, categories) VALUES (?, ?, ?, ?, ?)`,
		a.Path, a.Title, body, strings.Join(a.Tags, " "), strings.Join(a.Categories, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM articles_fts WHERE path = ?`, path)
}

// matchExpr quotes every term as a prefix phrase so user input never
// reaches the FTS5 query syntax.
func matchExpr(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(quoted, " AND ")
}

// Search ranks matches with bm25 and highlights the body snippet.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       snippet(articles_fts, 2, '<b>', '</b>', '...', 64)
		FROM articles_fts
		WHERE articles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchExpr(terms), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
