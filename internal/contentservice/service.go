// Package contentservice coordinates the content store and the article
// index for the HTTP API and the MCP server.
package contentservice

import (
	"context"
	"crypto/subtle"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/checksum"
	"github.com/starford/hugopub/internal/frontmatter"
	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/jobs"
	"github.com/starford/hugopub/internal/models"
	"github.com/starford/hugopub/internal/storage"
)

// MaxContentSize bounds JSON request bodies.
const MaxContentSize = 50 << 20

// Config holds the site layout.
type Config struct {
	Dirs       []string
	DefaultDir string
	ImageDir   string
	PublicURL  string
	Password   string
	Location   *time.Location
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Store
	db    *index.DB
	cfg   Config
	now   func() time.Time
}

// NewService creates a content service.
func NewService(store storage.Store, db *index.DB, cfg Config) *Service {
	if cfg.ImageDir == "" {
		cfg.ImageDir = "static/images"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{store: store, db: db, cfg: cfg, now: time.Now}
}

// SiteConfig reports the accepted directories and limits.
func (s *Service) SiteConfig() models.SiteConfig {
	return models.SiteConfig{
		DefaultTargetDir: s.cfg.DefaultDir,
		Directories:      nonNil(s.cfg.Dirs),
		SupportedFormats: []string{"md", "markdown"},
		MaxContentSize:   MaxContentSize,
		MaxImageSize:     MaxImageSize,
	}
}

// VerifyPassword compares pw with the publish password in constant time.
// An empty configured password rejects everything.
func (s *Service) VerifyPassword(pw string) bool {
	if s.cfg.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pw), []byte(s.cfg.Password)) == 1
}

// Preview builds the front matter block for req. The date defaults to now.
func (s *Service) Preview(req models.PreviewRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", apperr.Validation("title is required")
	}
	date := req.Date
	if date == "" {
		date = s.now().In(s.cfg.Location).Format("2006-01-02 15:04")
	}
	fm := frontmatter.FrontMatter{Title: req.Title, Date: date, Tags: req.Tags}
	if c := strings.TrimSpace(req.Category); c != "" {
		fm.Categories = []string{c}
	}
	return frontmatter.Serialize(fm), nil
}

// ListFiles lists the Markdown files and sub directories of dir. With
// fetchMetadata each article reports its front matter date as UpdatedAt.
func (s *Service) ListFiles(_ context.Context, dir string, fetchMetadata bool) (string, []models.FileEntry, error) {
	if dir == "" {
		dir = s.cfg.DefaultDir
	}
	entries, err := s.store.ReadDir(dir)
	if err != nil {
		return dir, nil, err
	}

	files := make([]models.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type == storage.TypeFile && !isMarkdown(e.Name) {
			continue
		}
		fe := models.FileEntry{Name: e.Name, Path: e.Path, Type: e.Type, Size: e.Size}
		if e.Type == storage.TypeFile {
			fe.URL = jobs.PermalinkURL(s.cfg.PublicURL, e.Path)
			if fetchMetadata {
				fe.UpdatedAt = s.articleDate(e.Path)
			}
		}
		files = append(files, fe)
	}
	return dir, files, nil
}

// articleDate returns the article date as RFC 3339, or nil when unknown.
func (s *Service) articleDate(p string) *string {
	var raw string
	if a, err := s.db.GetArticle(p); err == nil {
		raw = a.Date
	} else if data, err := s.store.Read(p); err == nil {
		raw = frontmatter.Field(string(data), "date")
	}
	t, ok := models.ParseTimestamp(raw)
	if !ok {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

// GetFile returns the decoded text of the file at p.
func (s *Service) GetFile(_ context.Context, p string) (*models.FileResponse, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return &models.FileResponse{
		Envelope: models.Envelope{Success: true},
		Path:     p,
		Content:  string(data),
		SHA:      checksum.Blob(data),
	}, nil
}

// DeleteFile removes the file at p and drops it from the index.
func (s *Service) DeleteFile(_ context.Context, p string) error {
	if _, err := s.store.Remove(p, "Delete: "+p); err != nil {
		return err
	}
	if err := s.db.DeleteArticle(p); err != nil {
		return fmt.Errorf("contentservice: unindex %s: %w", p, err)
	}
	return nil
}

// GetArticle returns the indexed metadata of an article.
func (s *Service) GetArticle(_ context.Context, p string) (*models.Article, error) {
	return s.db.GetArticle(p)
}

// ListArticles returns the indexed articles of dir, newest first.
func (s *Service) ListArticles(_ context.Context, dir string) ([]models.Article, error) {
	return s.db.ListArticles(strings.Trim(dir, "/"))
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("query is required")
	}
	return s.db.Search(query, limit)
}

// IndexFile upserts an article that was just written.
func (s *Service) IndexFile(p string, data []byte) error {
	if !isMarkdown(p) {
		return nil
	}
	return index.IndexFile(s.db, p, data)
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".md" || ext == ".markdown"
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
