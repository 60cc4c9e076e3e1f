package jobs

import (
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
)

const fallbackSlug = "post"

// Filename returns the Hugo file name for an article published at t:
// YYYY-MM-DD-<slug>.md.
func Filename(t time.Time, title string) string {
	s, err := slug.Normalize(title)
	if err != nil || s == "" {
		s = fallbackSlug
	}
	return t.Format("2006-01-02") + "-" + s + ".md"
}

// UntitledTitle is used when no title was given and none could be suggested.
func UntitledTitle(t time.Time) string {
	return "untitled-" + t.Format("20060102150405")
}

// PermalinkURL maps a content path to its public URL:
// content/posts/a.md -> <publicURL>/posts/a.
func PermalinkURL(publicURL, p string) string {
	p = strings.TrimPrefix(path.Clean(p), "content/")
	p = strings.TrimSuffix(p, ".md")
	return strings.TrimSuffix(publicURL, "/") + "/" + p
}
