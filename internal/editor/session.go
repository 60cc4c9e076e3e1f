// Package editor ties one editing session together: the document being
// edited, its authorization state, the publish controller and the article
// browser.
package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/articles"
	"github.com/starford/hugopub/internal/auth"
	"github.com/starford/hugopub/internal/document"
	"github.com/starford/hugopub/internal/models"
	"github.com/starford/hugopub/internal/publish"
)

// MaxImageSize is the largest image accepted for upload.
const MaxImageSize = 10 << 20

// ImageExtensions lists the accepted image file extensions.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp"}

// API is the backend surface a session uses.
type API interface {
	auth.Verifier
	publish.JobAPI
	articles.Lister
	document.Source
	Format(ctx context.Context, req models.FormatRequest) (*models.FormatResponse, error)
	DeleteFile(ctx context.Context, path string) error
	UploadImage(ctx context.Context, filename string, r io.Reader, customName string) (*models.UploadImageResponse, error)
}

// Imported is an article fetched from the web.
type Imported struct {
	Title    string
	Markdown string
}

// Importer turns a web page into Markdown.
type Importer interface {
	Import(ctx context.Context, url string) (*Imported, error)
}

// Config holds session settings.
type Config struct {
	// ArticleDirs are the repository directories shown in the browser.
	ArticleDirs  []string
	PageSize     int
	PollInterval time.Duration
	Retry        publish.RetryConfig
}

// Session is the context object of one editor. It is driven by a single
// goroutine.
type Session struct {
	Doc       *document.Document
	Auth      *auth.Session
	Gate      *auth.Gate
	Publisher *publish.Controller
	Articles  *articles.Projection

	api    API
	dirs   []string
	logger *slog.Logger
}

// NewSession creates a session with an empty document and an
// unauthorized auth state.
func NewSession(api API, prompter auth.Prompter, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	authSession := auth.NewSession()
	return &Session{
		Doc:  document.New(),
		Auth: authSession,
		Gate: auth.NewGate(api, authSession, prompter, logger),
		Publisher: publish.NewController(api,
			publish.WithInterval(cfg.PollInterval),
			publish.WithRetry(cfg.Retry),
			publish.WithLogger(logger)),
		Articles: articles.New(cfg.PageSize),
		api:      api,
		dirs:     cfg.ArticleDirs,
		logger:   logger,
	}
}

// Preview renders the current body.
func (s *Session) Preview() string {
	return s.Doc.Preview()
}

// NewDocument discards the current document.
func (s *Session) NewDocument() {
	s.Doc.Reset()
}

// Open loads the article at path into the editor.
func (s *Session) Open(ctx context.Context, p string) error {
	if err := s.Doc.Load(ctx, s.api, p); err != nil {
		return err
	}
	s.logger.Info("article opened", slog.String("path", p))
	return nil
}

// Format runs the body through the remote formatter and applies the result.
func (s *Session) Format(ctx context.Context) error {
	if err := s.Doc.Validate(); err != nil {
		return err
	}
	res, err := s.api.Format(ctx, models.FormatRequest{
		Content:  s.Doc.Body,
		Title:    s.Doc.Title,
		Tags:     s.Doc.Tags,
		Category: s.Doc.Category(),
	})
	if err != nil {
		return fmt.Errorf("editor: format: %w", err)
	}
	s.Doc.ApplyFormat(res)
	return nil
}

// Publish publishes the document once the session is authorized.
func (s *Session) Publish(ctx context.Context, opts publish.Options, onProgress publish.ProgressFunc) (*models.JobResult, error) {
	if err := s.Doc.Validate(); err != nil {
		return nil, err
	}
	var result *models.JobResult
	err := s.Gate.RequireAuth(ctx, "publish", func(ctx context.Context) error {
		res, err := s.Publisher.Publish(ctx, s.Doc, opts, onProgress)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshArticles reloads the article browser from every directory.
func (s *Session) RefreshArticles(ctx context.Context) error {
	return s.Articles.Load(ctx, s.api, s.dirs...)
}

// DeleteArticle deletes path once authorized and reloads the browser from
// scratch.
func (s *Session) DeleteArticle(ctx context.Context, p string) error {
	return s.Gate.RequireAuth(ctx, "delete "+p, func(ctx context.Context) error {
		if err := s.api.DeleteFile(ctx, p); err != nil {
			return fmt.Errorf("editor: delete %s: %w", p, err)
		}
		s.logger.Info("article deleted", slog.String("path", p))
		if s.Doc.SourcePath == p {
			s.Doc.SourcePath = ""
		}
		return s.RefreshArticles(ctx)
	})
}

// UploadImage uploads an image and references it at the end of the body.
func (s *Session) UploadImage(ctx context.Context, filename string, r io.Reader, size int64, customName string) (*models.UploadImageResponse, error) {
	if err := ValidateImage(filename, size); err != nil {
		return nil, err
	}
	res, err := s.api.UploadImage(ctx, filename, r, customName)
	if err != nil {
		return nil, fmt.Errorf("editor: upload %s: %w", filename, err)
	}
	alt := strings.TrimSuffix(res.Filename, path.Ext(res.Filename))
	s.Doc.AppendImage(alt, res.URL)
	return res, nil
}

// Import replaces the document with the page at url.
func (s *Session) Import(ctx context.Context, imp Importer, url string) error {
	res, err := imp.Import(ctx, url)
	if err != nil {
		return fmt.Errorf("editor: import %s: %w", url, err)
	}
	s.Doc.Reset()
	s.Doc.Title = res.Title
	s.Doc.Body = res.Markdown
	return nil
}

// ValidateImage applies the client-side upload checks.
func ValidateImage(filename string, size int64) error {
	ext := strings.ToLower(path.Ext(filename))
	if !slices.Contains(ImageExtensions, ext) {
		return apperr.Validation(fmt.Sprintf("unsupported image type %q", ext))
	}
	if size > MaxImageSize {
		return apperr.Validation("image exceeds 10 MB")
	}
	return nil
}
