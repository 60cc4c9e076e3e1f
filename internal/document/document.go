// Package document holds the article being edited in a session.
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/frontmatter"
	"github.com/starford/hugopub/internal/markdown"
	"github.com/starford/hugopub/internal/models"
)

// Source fetches the raw text of a stored article.
type Source interface {
	ReadArticle(ctx context.Context, path string) (string, error)
}

// Document is an article: metadata, body and where it is stored.
// It is owned by a single editing session and is not safe for concurrent
// mutation.
type Document struct {
	frontmatter.FrontMatter
	Body string
	// SourcePath is empty until the document is loaded or published.
	SourcePath string
	// Formatted is set once the body went through the remote formatter.
	Formatted bool
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Parse builds a document from stored text.
func Parse(raw string) *Document {
	fm, body := frontmatter.Decode(raw)
	return &Document{FrontMatter: fm, Body: body}
}

// String composes the stored representation.
func (d *Document) String() string {
	return frontmatter.Encode(d.FrontMatter, d.Body)
}

// Validate rejects documents that cannot be published.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Body) == "" {
		return apperr.Validation("content is empty")
	}
	return nil
}

// Category returns the first category, the only one the editor exposes.
func (d *Document) Category() string {
	if len(d.Categories) == 0 {
		return ""
	}
	return d.Categories[0]
}

// SetCategory replaces the categories with c, or clears them when c is blank.
func (d *Document) SetCategory(c string) {
	c = strings.TrimSpace(c)
	if c == "" {
		d.Categories = nil
		return
	}
	d.Categories = []string{c}
}

// TagsCSV renders tags the way the editor field shows them.
func (d *Document) TagsCSV() string {
	return strings.Join(d.Tags, ", ")
}

// SetTagsCSV parses a comma separated tag field.
func (d *Document) SetTagsCSV(s string) {
	d.Tags = SplitTags(s)
}

// SplitTags splits on commas, trims entries and drops empty ones.
func SplitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Preview renders the body to HTML.
func (d *Document) Preview() string {
	return markdown.Render(d.Body)
}

// Stats counts the body.
func (d *Document) Stats() markdown.Stats {
	return markdown.Count(d.Body)
}

// Load replaces the document with the article at path. On error the
// document is left untouched.
func (d *Document) Load(ctx context.Context, src Source, path string) error {
	raw, err := src.ReadArticle(ctx, path)
	if err != nil {
		return fmt.Errorf("document: load %s: %w", path, err)
	}
	loaded := Parse(raw)
	loaded.SourcePath = path
	*d = *loaded
	return nil
}

// ApplyFormat takes the formatter output: the body is replaced, an empty
// title is filled from the suggestion and suggested category and tags are
// taken over.
func (d *Document) ApplyFormat(res *models.FormatResponse) {
	if res == nil {
		return
	}
	if res.FormattedContent != "" {
		d.Body = res.FormattedContent
	}
	if strings.TrimSpace(d.Title) == "" && res.SuggestedTitle != "" {
		d.Title = res.SuggestedTitle
	}
	if res.SuggestedCategory != "" {
		d.SetCategory(res.SuggestedCategory)
	}
	if len(res.SuggestedTags) > 0 {
		d.Tags = append([]string(nil), res.SuggestedTags...)
	}
	d.Formatted = true
}

// MarkPublished records where the publish job stored the article.
func (d *Document) MarkPublished(res *models.JobResult) {
	if res != nil && res.FilePath != "" {
		d.SourcePath = res.FilePath
	}
}

// Edit marks the body as changed so a later publish formats it again.
func (d *Document) Edit(body string) {
	d.Body = body
	d.Formatted = false
}

// AppendImage adds a Markdown image reference at the end of the body.
func (d *Document) AppendImage(alt, url string) {
	ref := fmt.Sprintf("![%s](%s)", alt, url)
	switch {
	case d.Body == "":
		d.Body = ref + "\n"
	case strings.HasSuffix(d.Body, "\n"):
		d.Body += "\n" + ref + "\n"
	default:
		d.Body += "\n\n" + ref + "\n"
	}
}

// Reset clears the document for a new article.
func (d *Document) Reset() {
	*d = Document{}
}
