// Package markdown renders article bodies to HTML for preview.
//
// The renderer is a fixed sequence of regex stages. It covers the subset of
// Markdown the editor produces and makes no attempt at CommonMark
// compliance: constructs do not nest and the output is not sanitized.
package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Placeholders never survive into output. NUL bytes are stripped from input
// so they cannot collide with user text.
const (
	fencePrefix    = "\x00F"
	inlinePrefix   = "\x00C"
	orderedMarker  = "\x00O"
	placeholderEnd = "\x00"
)

var (
	fenceRe       = regexp.MustCompile("(?m)^```([\\w+#-]*)[ \\t]*\\n((?s:.*?))^```[ \\t]*$")
	inlineCodeRe  = regexp.MustCompile("`([^`\\n]+)`")
	headingRe     = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)
	ruleRe        = regexp.MustCompile(`(?m)^(?:-{3,}|\*{3,})[ \t]*$`)
	imageRe       = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldRe        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe      = regexp.MustCompile(`\*([^*\n]+?)\*`)
	quoteRe       = regexp.MustCompile(`(?m)^> (.+)$`)
	quoteJoinRe   = regexp.MustCompile(`</blockquote>\n<blockquote>`)
	bulletRe      = regexp.MustCompile(`(?m)^- (.+)$`)
	orderedRe     = regexp.MustCompile(`(?m)^\d+\. (.+)$`)
	placeholderRe = regexp.MustCompile(`\x00([FC])(\d+)\x00`)
)

var blockPrefixes = []string{
	"<h1", "<h2", "<h3", "<h4", "<h5", "<h6",
	"<ul", "</ul", "<ol", "</ol", "<li",
	"<blockquote", "<pre", "<p>", "<hr", "<div", "<table",
	fencePrefix,
}

// Stage is one rewrite step of the pipeline.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Renderer converts Markdown to HTML. The zero value is ready to use and
// safe for concurrent use.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render runs every stage in order. Output depends only on src.
func (r *Renderer) Render(src string) string {
	out := src
	for _, s := range r.Stages() {
		out = s.Apply(out)
	}
	return out
}

// Stages returns a fresh pipeline. The code stash is shared by the
// extraction and restore stages of this pipeline only.
func (r *Renderer) Stages() []Stage {
	st := &stash{}
	return []Stage{
		{Name: "normalize", Apply: normalize},
		{Name: "fences", Apply: st.extractFences},
		{Name: "inline-code", Apply: st.extractInline},
		{Name: "headings", Apply: headings},
		{Name: "rules", Apply: rules},
		{Name: "images", Apply: images},
		{Name: "links", Apply: links},
		{Name: "emphasis", Apply: emphasis},
		{Name: "blockquotes", Apply: blockquotes},
		{Name: "list-items", Apply: listItems},
		{Name: "list-groups", Apply: listGroups},
		{Name: "paragraphs", Apply: paragraphs},
		{Name: "restore", Apply: st.restore},
	}
}

// Render is a shorthand for New().Render(src).
func Render(src string) string {
	return New().Render(src)
}

type stash struct {
	fences []string
	inline []string
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\x00", "")
}

func (st *stash) extractFences(s string) string {
	return fenceRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := fenceRe.FindStringSubmatch(m)
		code := html.EscapeString(strings.TrimSuffix(sub[2], "\n"))
		open := "<pre><code>"
		if sub[1] != "" {
			open = fmt.Sprintf(`<pre><code class="language-%s">`, sub[1])
		}
		st.fences = append(st.fences, open+code+"</code></pre>")
		return fencePrefix + strconv.Itoa(len(st.fences)-1) + placeholderEnd
	})
}

func (st *stash) extractInline(s string) string {
	return inlineCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		code := m[1 : len(m)-1]
		st.inline = append(st.inline, "<code>"+html.EscapeString(code)+"</code>")
		return inlinePrefix + strconv.Itoa(len(st.inline)-1) + placeholderEnd
	})
}

func (st *stash) restore(s string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		i, err := strconv.Atoi(sub[2])
		if err != nil {
			return m
		}
		pool := st.inline
		if sub[1] == "F" {
			pool = st.fences
		}
		if i < 0 || i >= len(pool) {
			return m
		}
		return pool[i]
	})
}

func headings(s string) string {
	return headingRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := headingRe.FindStringSubmatch(m)
		level := len(sub[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, sub[2], level)
	})
}

func rules(s string) string {
	return ruleRe.ReplaceAllString(s, "<hr>")
}

// images must run before links or the leading "!" is orphaned.
func images(s string) string {
	return imageRe.ReplaceAllString(s, `<img src="$2" alt="$1">`)
}

func links(s string) string {
	return linkRe.ReplaceAllString(s, `<a href="$2" target="_blank">$1</a>`)
}

func emphasis(s string) string {
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	return italicRe.ReplaceAllString(s, "<em>$1</em>")
}

func blockquotes(s string) string {
	s = quoteRe.ReplaceAllString(s, "<blockquote>$1</blockquote>")
	return quoteJoinRe.ReplaceAllString(s, "<br>")
}

// listItems emits bare <li> elements; ordered items carry a marker that
// listGroups consumes.
func listItems(s string) string {
	s = bulletRe.ReplaceAllString(s, "<li>$1</li>")
	return orderedRe.ReplaceAllString(s, orderedMarker+"<li>$1</li>")
}

func listGroups(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	kind := ""

	closeRun := func() {
		if kind != "" {
			out = append(out, "</"+kind+">")
			kind = ""
		}
	}

	for _, line := range lines {
		var want string
		switch {
		case strings.HasPrefix(line, orderedMarker+"<li>"):
			want = "ol"
			line = strings.TrimPrefix(line, orderedMarker)
		case strings.HasPrefix(line, "<li>"):
			want = "ul"
		default:
			closeRun()
			out = append(out, line)
			continue
		}
		if want != kind {
			closeRun()
			out = append(out, "<"+want+">")
			kind = want
		}
		out = append(out, line)
	}
	closeRun()

	return strings.Join(out, "\n")
}

func paragraphs(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isBlock(trimmed) {
			out = append(out, trimmed)
			continue
		}
		out = append(out, "<p>"+trimmed+"</p>")
	}
	return strings.Join(out, "\n")
}

func isBlock(line string) bool {
	for _, p := range blockPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
