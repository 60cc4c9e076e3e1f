// Package frontmatter splits, parses and serializes the "---" delimited
// metadata block at the top of an article.
//
// The codec is line oriented and deliberately lossy: only title, date,
// categories and tags are recognised and every other key is dropped.
package frontmatter

import (
	"strconv"
	"strings"
)

// Delimiter opens and closes the metadata block.
const Delimiter = "---"

// FrontMatter is the recognised subset of article metadata.
type FrontMatter struct {
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// Block is the result of Split.
type Block struct {
	// FrontMatter holds the lines between the delimiters, without them.
	FrontMatter string
	Body        string
	// Found is false when the input had no complete delimited block.
	Found bool
}

// Split separates the metadata block from the Markdown body. Only blank
// lines may precede the opening delimiter; a later "---" is a horizontal
// rule. Without a closing delimiter the whole input is body.
func Split(raw string) Block {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	open := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == Delimiter {
			open = i
		}
		break
	}
	if open < 0 {
		return Block{Body: raw}
	}

	for i := open + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != Delimiter {
			continue
		}
		body := strings.Join(lines[i+1:], "\n")
		return Block{
			FrontMatter: strings.Join(lines[open+1:i], "\n"),
			Body:        strings.TrimLeft(body, "\n"),
			Found:       true,
		}
	}

	return Block{Body: raw}
}

// Parse reads key: value lines from a metadata block. Malformed lines and
// unknown keys are ignored; Parse never fails.
func Parse(block string) FrontMatter {
	var fm FrontMatter
	for _, line := range strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == Delimiter {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "title":
			fm.Title = unquote(value)
		case "date":
			fm.Date = truncateDate(unquote(value))
		case "categories":
			fm.Categories = parseList(value)
		case "tags":
			fm.Tags = parseList(value)
		}
	}
	return fm
}

// Field returns the unquoted value of key in the metadata block of raw,
// without the date truncation Parse applies.
func Field(raw, key string) string {
	b := Split(raw)
	if !b.Found {
		return ""
	}
	for _, line := range strings.Split(b.FrontMatter, "\n") {
		k, value, ok := strings.Cut(line, ":")
		if ok && strings.TrimSpace(k) == key {
			return unquote(strings.TrimSpace(value))
		}
	}
	return ""
}

// Decode is Split followed by Parse.
func Decode(raw string) (FrontMatter, string) {
	b := Split(raw)
	return Parse(b.FrontMatter), b.Body
}

// Option adjusts Serialize output.
type Option func(*options)

type options struct {
	draft bool
}

// WithDraft emits "draft: true" after the date when draft is set.
func WithDraft(draft bool) Option {
	return func(o *options) {
		o.draft = draft
	}
}

// Serialize renders fm as a delimited block terminated by a newline.
// Keys are always written in the same order.
func Serialize(fm FrontMatter, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	b.WriteString(Delimiter + "\n")
	b.WriteString("title: " + strconv.Quote(fm.Title) + "\n")
	b.WriteString("date: " + strconv.Quote(fm.Date) + "\n")
	if o.draft {
		b.WriteString("draft: true\n")
	}
	b.WriteString("categories: " + formatList(fm.Categories) + "\n")
	b.WriteString("tags: " + formatList(fm.Tags) + "\n")
	b.WriteString(Delimiter + "\n")
	return b.String()
}

// Encode composes a complete article: block, blank line, body.
func Encode(fm FrontMatter, body string, opts ...Option) string {
	return Serialize(fm, opts...) + "\n" + body
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[ " + strings.Join(quoted, ", ") + " ]"
}

func parseList(value string) []string {
	if len(value) < 2 || value[0] != '[' || value[len(value)-1] != ']' {
		return nil
	}
	var out []string
	for _, item := range splitItems(value[1 : len(value)-1]) {
		item = unquote(strings.TrimSpace(item))
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// splitItems splits on commas that are not inside quotes.
func splitItems(s string) []string {
	var (
		items   []string
		current strings.Builder
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case quote == '"' && r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
		case quote == 0 && r == ',':
			items = append(items, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	return append(items, current.String())
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	switch {
	case v[0] == '"' && v[len(v)-1] == '"':
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return v[1 : len(v)-1]
	case v[0] == '\'' && v[len(v)-1] == '\'':
		return strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	return v
}

// truncateDate drops a time component introduced by "T" or a space.
func truncateDate(v string) string {
	if i := strings.IndexAny(v, "T "); i > 0 {
		return v[:i]
	}
	return v
}
