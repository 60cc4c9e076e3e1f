package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/formatter"
	"github.com/starford/hugopub/internal/frontmatter"
	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/models"
)

type memWriter struct {
	mu      sync.Mutex
	files   map[string]string
	message string
	err     error
}

func (w *memWriter) Save(p string, content []byte, message string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return "", w.err
	}
	if w.files == nil {
		w.files = map[string]string{}
	}
	w.files[p] = string(content)
	w.message = message
	return "rev", nil
}

func (w *memWriter) get(p string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.files[p]
	return s, ok
}

type stubFormatter struct {
	formatted string
	formatErr error
	title     string
}

func (f stubFormatter) Format(context.Context, formatter.Input) (string, error) {
	return f.formatted, f.formatErr
}

func (f stubFormatter) SuggestTitle(context.Context, string) (string, error) {
	if f.title == "" {
		return "", formatter.ErrUnavailable
	}
	return f.title, nil
}

func (f stubFormatter) SuggestTags(_ context.Context, _ string, existing []string) ([]string, error) {
	return existing, nil
}

var fixedNow = time.Date(2024, 3, 4, 10, 20, 30, 0, time.UTC)

func newTestManager(t *testing.T, w Writer, f formatter.Formatter, opts ...Option) *Manager {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := Config{
		Workers:    1,
		DefaultDir: "content/posts",
		Dirs:       []string{"content/posts", "content/notes"},
		PublicURL:  "https://blog.example.com/",
		Location:   time.UTC,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewManager(w, db, f, cfg, logger, opts...)
}

func runManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitTerminal(t *testing.T, m *Manager, id string) *models.PublishJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.Get(id)
		if err == nil && job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestPublishWritesArticle(t *testing.T) {
	w := &memWriter{}
	var mu sync.Mutex
	var seen []int
	m := newTestManager(t, w, stubFormatter{formatted: "## Formatted"}, WithNotifier(func(j models.PublishJob) {
		mu.Lock()
		seen = append(seen, j.Progress)
		mu.Unlock()
	}))
	runManager(t, m)

	job, err := m.Submit(models.PublishRequest{
		Title:      "Hello World",
		Content:    "raw body",
		Tags:       []string{"go"},
		Category:   "tech",
		AutoFormat: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != models.JobQueued || job.Progress != 0 {
		t.Errorf("initial job = %+v", job)
	}

	done := waitTerminal(t, m, job.ID)
	if done.Status != models.JobCompleted || done.Progress != 100 {
		t.Fatalf("job = %+v", done)
	}
	wantPath := "content/posts/2024-03-04-hello-world.md"
	if done.Result == nil || done.Result.FilePath != wantPath {
		t.Fatalf("result = %+v", done.Result)
	}
	if done.Result.URL != "https://blog.example.com/posts/2024-03-04-hello-world" {
		t.Errorf("url = %q", done.Result.URL)
	}

	raw, ok := w.get(wantPath)
	if !ok {
		t.Fatalf("file not written: %v", w.files)
	}
	fm, body := frontmatter.Decode(raw)
	if fm.Title != "Hello World" || fm.Categories[0] != "tech" || fm.Tags[0] != "go" {
		t.Errorf("front matter = %+v", fm)
	}
	if strings.TrimSpace(body) != "## Formatted" {
		t.Errorf("body = %q", body)
	}
	if w.message != "Publish: Hello World" {
		t.Errorf("commit message = %q", w.message)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 10, 60, 90, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("progress = %v, want %v", seen, want)
			break
		}
	}
}

func TestFormatFailureKeepsContent(t *testing.T) {
	w := &memWriter{}
	m := newTestManager(t, w, stubFormatter{formatErr: errors.New("api down")})
	runManager(t, m)

	job, err := m.Submit(models.PublishRequest{Title: "Keep", Content: "original", AutoFormat: true, Draft: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	done := waitTerminal(t, m, job.ID)
	if done.Status != models.JobCompleted {
		t.Fatalf("job = %+v", done)
	}
	raw, _ := w.get(done.Result.FilePath)
	if !strings.Contains(raw, "draft: true") || !strings.HasSuffix(raw, "original\n") {
		t.Errorf("raw = %q", raw)
	}
}

func TestMissingTitle(t *testing.T) {
	w := &memWriter{}
	m := newTestManager(t, w, stubFormatter{title: "Suggested Title"})
	runManager(t, m)

	job, _ := m.Submit(models.PublishRequest{Content: "body"})
	done := waitTerminal(t, m, job.ID)
	if done.Result == nil || done.Result.FilePath != "content/posts/2024-03-04-suggested-title.md" {
		t.Errorf("result = %+v", done.Result)
	}

	m2 := newTestManager(t, w, stubFormatter{})
	runManager(t, m2)
	job, _ = m2.Submit(models.PublishRequest{Content: "body", TargetDir: "content/notes"})
	done = waitTerminal(t, m2, job.ID)
	raw, _ := w.get(done.Result.FilePath)
	fm, _ := frontmatter.Decode(raw)
	if fm.Title != "untitled-20240304102030" {
		t.Errorf("title = %q", fm.Title)
	}
	if !strings.HasPrefix(done.Result.FilePath, "content/notes/") {
		t.Errorf("path = %q", done.Result.FilePath)
	}
}

func TestSaveFailureFailsJob(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}
	m := newTestManager(t, w, formatter.Passthrough{})
	runManager(t, m)

	job, _ := m.Submit(models.PublishRequest{Title: "x", Content: "y"})
	done := waitTerminal(t, m, job.ID)
	if done.Status != models.JobFailed || done.Error != "disk full" {
		t.Errorf("job = %+v", done)
	}
}

func TestSubmitValidation(t *testing.T) {
	m := newTestManager(t, &memWriter{}, formatter.Passthrough{})
	cases := []models.PublishRequest{
		{Content: "   "},
		{Content: "ok", TargetDir: "content/secret"},
	}
	for _, req := range cases {
		if _, err := m.Submit(req); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Submit(%+v) err = %v, want ErrValidation", req, err)
		}
	}
}

func TestGetUnknownJob(t *testing.T) {
	m := newTestManager(t, &memWriter{}, formatter.Passthrough{})
	if _, err := m.Get("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNaming(t *testing.T) {
	if got := Filename(fixedNow, "!!!"); got != "2024-03-04-post.md" {
		t.Errorf("fallback filename = %q", got)
	}
	if got := PermalinkURL("https://x.dev", "content/notes/a.md"); got != "https://x.dev/notes/a" {
		t.Errorf("url = %q", got)
	}
}
