package document

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/models"
)

type mapSource map[string]string

func (m mapSource) ReadArticle(_ context.Context, path string) (string, error) {
	raw, ok := m[path]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return raw, nil
}

func TestParseAndString(t *testing.T) {
	raw := "---\ntitle: \"Hello\"\ndate: \"2024-01-02\"\ncategories: [ \"tech\" ]\ntags: [ \"go\", \"hugo\" ]\n---\n\n# Hello\n"
	d := Parse(raw)
	if d.Title != "Hello" || d.Category() != "tech" {
		t.Errorf("title=%q category=%q", d.Title, d.Category())
	}
	if d.TagsCSV() != "go, hugo" {
		t.Errorf("tags csv = %q", d.TagsCSV())
	}
	if d.String() != raw {
		t.Errorf("string =\n%q\nwant\n%q", d.String(), raw)
	}
}

func TestValidate_EmptyBody(t *testing.T) {
	d := New()
	d.Title = "only a title"
	d.Body = "  \n\t"
	if err := d.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	d.Body = "text"
	if err := d.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetTagsCSV(t *testing.T) {
	d := New()
	d.SetTagsCSV(" a, ,b ,, c")
	if !reflect.DeepEqual(d.Tags, []string{"a", "b", "c"}) {
		t.Errorf("tags = %v", d.Tags)
	}
	d.SetTagsCSV("")
	if d.Tags != nil {
		t.Errorf("tags = %v, want nil", d.Tags)
	}
}

func TestLoad(t *testing.T) {
	src := mapSource{"content/posts/a.md": "---\ntitle: A\n---\nBody A"}
	d := New()
	d.Body = "unsaved"

	if err := d.Load(context.Background(), src, "content/posts/missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if d.Body != "unsaved" {
		t.Errorf("failed load mutated document: body = %q", d.Body)
	}

	if err := d.Load(context.Background(), src, "content/posts/a.md"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Title != "A" || d.Body != "Body A" || d.SourcePath != "content/posts/a.md" {
		t.Errorf("loaded = %+v", d)
	}
}

func TestApplyFormat(t *testing.T) {
	d := New()
	d.Body = "raw"
	d.ApplyFormat(&models.FormatResponse{
		FormattedContent:  "# Formatted",
		SuggestedTitle:    "Suggested",
		SuggestedCategory: "notes",
		SuggestedTags:     []string{"x"},
	})
	if d.Body != "# Formatted" || d.Title != "Suggested" || d.Category() != "notes" || !d.Formatted {
		t.Errorf("after format = %+v", d)
	}

	d.Title = "Mine"
	d.ApplyFormat(&models.FormatResponse{FormattedContent: "again", SuggestedTitle: "Other"})
	if d.Title != "Mine" {
		t.Errorf("title overwritten: %q", d.Title)
	}

	d.Edit("changed")
	if d.Formatted {
		t.Error("edit must clear Formatted")
	}
}

func TestAppendImage(t *testing.T) {
	d := New()
	d.Body = "text"
	d.AppendImage("cat", "/images/cat.png")
	if d.Body != "text\n\n![cat](/images/cat.png)\n" {
		t.Errorf("body = %q", d.Body)
	}
}

func TestMarkPublished(t *testing.T) {
	d := New()
	d.MarkPublished(&models.JobResult{FilePath: "content/posts/2024-01-02-x.md"})
	if d.SourcePath != "content/posts/2024-01-02-x.md" {
		t.Errorf("source path = %q", d.SourcePath)
	}
}
