package editor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/auth"
	"github.com/starford/hugopub/internal/models"
	"github.com/starford/hugopub/internal/publish"
)

type fakeAPI struct {
	mu       sync.Mutex
	password string
	files    map[string]string
	verifies int
	deleted  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		password: "secret",
		files: map[string]string{
			"content/posts/a.md": "---\ntitle: A\ndate: 2024-01-01\n---\nBody A",
			"content/notes/b.md": "---\ntitle: B\n---\nBody B",
		},
	}
}

func (f *fakeAPI) VerifyPassword(_ context.Context, pw string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies++
	return pw == f.password, nil
}

func (f *fakeAPI) Publish(_ context.Context, req models.PublishRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["content/"+req.TargetDir+"/new.md"] = req.Content
	return "job-1", nil
}

func (f *fakeAPI) JobStatus(_ context.Context, id string) (*models.PublishJob, error) {
	return &models.PublishJob{
		ID:       id,
		Status:   models.JobCompleted,
		Progress: 100,
		Result:   &models.JobResult{FilePath: "content/posts/new.md", URL: "https://blog/posts/new/"},
	}, nil
}

func (f *fakeAPI) ListArticles(_ context.Context, dir string) ([]models.ArticleSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ArticleSummary
	for p := range f.files {
		if strings.HasPrefix(p, dir+"/") {
			out = append(out, models.ArticleSummary{Name: strings.TrimPrefix(p, dir+"/"), Path: p})
		}
	}
	return out, nil
}

func (f *fakeAPI) ReadArticle(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.files[p]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return raw, nil
}

func (f *fakeAPI) Format(_ context.Context, req models.FormatRequest) (*models.FormatResponse, error) {
	return &models.FormatResponse{
		Envelope:         models.Envelope{Success: true},
		FormattedContent: strings.TrimSpace(req.Content) + "\n",
		SuggestedTitle:   "Suggested",
	}, nil
}

func (f *fakeAPI) DeleteFile(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, p)
	f.deleted = append(f.deleted, p)
	return nil
}

func (f *fakeAPI) UploadImage(_ context.Context, filename string, r io.Reader, customName string) (*models.UploadImageResponse, error) {
	_, _ = io.ReadAll(r)
	name := filename
	if customName != "" {
		name = customName + ".png"
	}
	return &models.UploadImageResponse{Filename: name, URL: "/images/" + name}, nil
}

type staticPrompter struct {
	answer string
	asked  int
}

func (p *staticPrompter) Prompt(context.Context, auth.PromptRequest) (string, error) {
	p.asked++
	if p.answer == "" {
		return "", auth.ErrCanceled
	}
	return p.answer, nil
}

func newSession(api *fakeAPI, p auth.Prompter) *Session {
	return NewSession(api, p, Config{
		ArticleDirs:  []string{"content/posts", "content/notes"},
		PageSize:     10,
		PollInterval: 5 * time.Millisecond,
	}, nil)
}

func TestPublish_PromptsOnce(t *testing.T) {
	api := newFakeAPI()
	p := &staticPrompter{answer: "secret"}
	s := newSession(api, p)
	s.Doc.Body = "hello"

	for i := 0; i < 2; i++ {
		res, err := s.Publish(context.Background(), publish.Options{TargetDir: "posts"}, nil)
		if err != nil {
			t.Fatalf("Publish #%d: %v", i, err)
		}
		if res.FilePath != "content/posts/new.md" {
			t.Errorf("file path = %q", res.FilePath)
		}
	}
	if p.asked != 1 || api.verifies != 1 {
		t.Errorf("prompts = %d verifies = %d, want 1 and 1", p.asked, api.verifies)
	}
	if s.Doc.SourcePath != "content/posts/new.md" {
		t.Errorf("source path = %q", s.Doc.SourcePath)
	}
}

func TestPublish_EmptyBodyNeverPrompts(t *testing.T) {
	p := &staticPrompter{answer: "secret"}
	s := newSession(newFakeAPI(), p)
	if _, err := s.Publish(context.Background(), publish.Options{TargetDir: "posts"}, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if p.asked != 0 {
		t.Errorf("prompted %d times for an invalid document", p.asked)
	}
}

func TestDeleteArticle_ReloadsBrowser(t *testing.T) {
	api := newFakeAPI()
	s := newSession(api, &staticPrompter{answer: "secret"})
	ctx := context.Background()

	if err := s.RefreshArticles(ctx); err != nil {
		t.Fatalf("RefreshArticles: %v", err)
	}
	if v := s.Articles.View(); v.Total != 2 {
		t.Fatalf("total = %d, want 2", v.Total)
	}

	if err := s.Open(ctx, "content/posts/a.md"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.DeleteArticle(ctx, "content/posts/a.md"); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	if v := s.Articles.View(); v.Total != 1 {
		t.Errorf("total after delete = %d, want 1", v.Total)
	}
	if s.Doc.SourcePath != "" {
		t.Errorf("source path = %q, want cleared", s.Doc.SourcePath)
	}
}

func TestDeleteArticle_CanceledPrompt(t *testing.T) {
	api := newFakeAPI()
	s := newSession(api, &staticPrompter{})
	err := s.DeleteArticle(context.Background(), "content/posts/a.md")
	if !errors.Is(err, auth.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if len(api.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", api.deleted)
	}
}

func TestFormat(t *testing.T) {
	s := newSession(newFakeAPI(), nil)
	s.Doc.Body = "  text  "
	if err := s.Format(context.Background()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if s.Doc.Body != "text\n" || s.Doc.Title != "Suggested" || !s.Doc.Formatted {
		t.Errorf("doc = %+v", s.Doc)
	}
}

func TestUploadImage(t *testing.T) {
	s := newSession(newFakeAPI(), nil)
	s.Doc.Body = "intro"

	if _, err := s.UploadImage(context.Background(), "doc.pdf", strings.NewReader("x"), 1, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("pdf err = %v, want ErrValidation", err)
	}
	if _, err := s.UploadImage(context.Background(), "big.png", strings.NewReader("x"), MaxImageSize+1, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("oversize err = %v, want ErrValidation", err)
	}

	res, err := s.UploadImage(context.Background(), "cat.PNG", strings.NewReader("x"), 1, "kitty")
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if res.URL != "/images/kitty.png" || !strings.HasSuffix(s.Doc.Body, "![kitty](/images/kitty.png)\n") {
		t.Errorf("body = %q", s.Doc.Body)
	}
}

type fakeImporter struct{}

func (fakeImporter) Import(context.Context, string) (*Imported, error) {
	return &Imported{Title: "Page", Markdown: "# Page\n\ntext"}, nil
}

func TestImport(t *testing.T) {
	s := newSession(newFakeAPI(), nil)
	s.Doc.SourcePath = "content/posts/old.md"
	if err := s.Import(context.Background(), fakeImporter{}, "https://example.com"); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if s.Doc.Title != "Page" || s.Doc.SourcePath != "" {
		t.Errorf("doc = %+v", s.Doc)
	}
}
