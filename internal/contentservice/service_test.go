package contentservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/models"
	"github.com/starford/hugopub/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func testService(t *testing.T) (*Service, *storage.Repo, *index.DB) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo, err := storage.OpenRepo(fs, storage.Author{Name: "test", Email: "test@example.com"}, logger)
	if err != nil {
		t.Fatalf("OpenRepo: %v", err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(repo, db, Config{
		Dirs:       []string{"content/posts"},
		DefaultDir: "content/posts",
		PublicURL:  "https://blog.example.com",
		Password:   "secret",
		Location:   time.UTC,
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 10, 20, 0, 0, time.UTC) }
	return svc, repo, db
}

func TestVerifyPassword(t *testing.T) {
	svc, _, _ := testService(t)
	if !svc.VerifyPassword("secret") {
		t.Error("correct password rejected")
	}
	if svc.VerifyPassword("Secret") || svc.VerifyPassword("") {
		t.Error("wrong password accepted")
	}
	svc.cfg.Password = ""
	if svc.VerifyPassword("") {
		t.Error("empty configured password must reject")
	}
}

func TestPreview(t *testing.T) {
	svc, _, _ := testService(t)
	fm, err := svc.Preview(models.PreviewRequest{Title: "Hi", Category: "tech", Tags: []string{"a"}})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	for _, want := range []string{`title: "Hi"`, `date: "2024-03-04 10:20"`, `categories: [ "tech" ]`} {
		if !strings.Contains(fm, want) {
			t.Errorf("front matter %q missing %q", fm, want)
		}
	}
	if _, err := svc.Preview(models.PreviewRequest{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestListFiles(t *testing.T) {
	svc, repo, _ := testService(t)
	_ = repo.Write("content/posts/a.md", []byte("---\ntitle: \"A\"\ndate: \"2024-01-02 08:00\"\n---\n\nbody\n"))
	_ = repo.Write("content/posts/notes.txt", []byte("skip"))
	_ = repo.Write("content/posts/series/b.md", []byte("b"))

	dir, files, err := svc.ListFiles(context.Background(), "", false)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if dir != "content/posts" || len(files) != 2 {
		t.Fatalf("dir = %q, files = %+v", dir, files)
	}
	if files[0].Type != storage.TypeDir || files[1].Name != "a.md" {
		t.Errorf("files = %+v", files)
	}
	if files[1].URL != "https://blog.example.com/posts/a" || files[1].UpdatedAt != nil {
		t.Errorf("file = %+v", files[1])
	}

	_, files, _ = svc.ListFiles(context.Background(), "content/posts", true)
	if files[1].UpdatedAt == nil || *files[1].UpdatedAt != "2024-01-02T08:00:00Z" {
		t.Errorf("updated_at = %v", files[1].UpdatedAt)
	}

	if _, _, err := svc.ListFiles(context.Background(), "content/missing", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetAndDeleteFile(t *testing.T) {
	svc, repo, db := testService(t)
	data := []byte("---\ntitle: \"Bye\"\n---\n\nbody\n")
	if _, err := repo.Save("content/posts/bye.md", data, "Publish: Bye"); err != nil {
		t.Fatal(err)
	}
	if err := svc.IndexFile("content/posts/bye.md", data); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	f, err := svc.GetFile(context.Background(), "content/posts/bye.md")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Content != string(data) || len(f.SHA) != 40 {
		t.Errorf("file = %+v", f)
	}

	if err := svc.DeleteFile(context.Background(), "content/posts/bye.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := db.GetArticle("content/posts/bye.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("article still indexed: %v", err)
	}
	_, msg, _ := repo.Head()
	if !strings.HasPrefix(msg, "Delete: content/posts/bye.md") {
		t.Errorf("head message = %q", msg)
	}
	if err := svc.DeleteFile(context.Background(), "content/posts/bye.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestImageName(t *testing.T) {
	cases := []struct {
		filename, custom, want string
	}{
		{"My Photo.PNG", "", "1700000000-my-photo.png"},
		{"shot.jpg", "cover image", "cover-image.jpg"},
		{"shot.jpg", "cover.JPG", "cover.JPG"},
		{"a_b.gif", "", "1700000000-a-b.gif"},
	}
	for _, c := range cases {
		got, _, err := ImageName(c.filename, c.custom, 1700000000)
		if err != nil || got != c.want {
			t.Errorf("ImageName(%q, %q) = %q, %v; want %q", c.filename, c.custom, got, err, c.want)
		}
	}
	for _, bad := range [][2]string{{"doc.pdf", ""}, {"chart.svg", "../../etc/x"}, {"a.png", "..."}} {
		if _, _, err := ImageName(bad[0], bad[1], 1); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("ImageName(%q, %q) err = %v, want ErrValidation", bad[0], bad[1], err)
		}
	}
}

func TestSaveAndReadImage(t *testing.T) {
	svc, repo, _ := testService(t)
	res, err := svc.SaveImage(context.Background(), "pixel.png", "", pngBytes)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	wantName := "1709547600-pixel.png"
	if res.Filename != wantName || res.URL != "/images/"+wantName {
		t.Errorf("result = %+v", res)
	}
	_, msg, _ := repo.Head()
	if !strings.HasPrefix(msg, "Upload image: "+wantName) {
		t.Errorf("head message = %q", msg)
	}

	got, err := svc.ReadImage(wantName)
	if err != nil || string(got) != string(pngBytes) {
		t.Errorf("ReadImage = %q, %v", got, err)
	}
	if _, err := svc.ReadImage("../secret"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("traversal err = %v", err)
	}

	if _, err := svc.SaveImage(context.Background(), "fake.png", "", []byte("not an image")); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("mismatched content err = %v", err)
	}
	big := make([]byte, MaxImageSize+1)
	if _, err := svc.SaveImage(context.Background(), "big.png", "", big); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("oversize err = %v", err)
	}
}
