package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/models"
)

const articleColumns = `path, name, dir, title, date, categories, tags, checksum, size, updated_at`

// UpsertArticle inserts or replaces an article and its FTS entry within a transaction.
func (db *DB) UpsertArticle(a models.Article, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	categories, _ := json.Marshal(nonNil(a.Categories))
	tags, _ := json.Marshal(nonNil(a.Tags))

	_, err = tx.Exec(`
		INSERT INTO articles (path, name, dir, title, date, categories, tags, checksum, size, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			dir        = excluded.dir,
			title      = excluded.title,
			date       = excluded.date,
			categories = excluded.categories,
			tags       = excluded.tags,
			checksum   = excluded.checksum,
			size       = excluded.size,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, a.Path, a.Name, a.Directory, a.Title, a.Date, string(categories), string(tags), a.Checksum, a.Size, body, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert article: %w", err)
	}

	if err := ftsUpsert(tx, a, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteArticle removes an article and its FTS entry.
func (db *DB) DeleteArticle(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM articles WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete article: %w", err)
	}
	return tx.Commit()
}

// GetArticle returns the indexed metadata of one article.
func (db *DB) GetArticle(path string) (*models.Article, error) {
	row := db.conn.QueryRow(`SELECT `+articleColumns+` FROM articles WHERE path = ?`, path)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: article %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get article: %w", err)
	}
	return a, nil
}

// ListArticles returns the articles directly inside dir, or every article
// when dir is empty.
func (db *DB) ListArticles(dir string) ([]models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var args []any
	if dir != "" {
		query += ` WHERE dir = ?`
		args = append(args, dir)
	}
	query += ` ORDER BY date DESC, name ASC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan article: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (*models.Article, error) {
	var (
		a                models.Article
		categories, tags string
	)
	if err := s.Scan(&a.Path, &a.Name, &a.Directory, &a.Title, &a.Date, &categories, &tags, &a.Checksum, &a.Size, &a.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(categories), &a.Categories)
	_ = json.Unmarshal([]byte(tags), &a.Tags)
	return &a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
