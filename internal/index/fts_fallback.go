//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/hugopub/internal/models"
)

// Without FTS5 the body column of articles is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _ models.Article, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches every term against title, body, tags or categories,
// newest first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	var where []string
	var args []any
	for _, t := range terms {
		like := "%" + likeEscaper.Replace(t) + "%"
		where = append(where, `(lower(title) LIKE ? ESCAPE '\' OR lower(body) LIKE ? ESCAPE '\'`+
			` OR lower(tags) LIKE ? ESCAPE '\' OR lower(categories) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, title, substr(body, 1, 200)
		FROM articles
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
