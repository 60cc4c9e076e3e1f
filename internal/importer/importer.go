// Package importer turns a web page into a Markdown draft.
package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/editor"
)

const (
	defaultTimeout = 10 * time.Second
	maxPageSize    = 5 << 20
	userAgent      = "Mozilla/5.0 (compatible; hugopub/1.0)"
)

var (
	strippedTags   = []string{"script", "style", "nav", "footer", "iframe", "noscript"}
	contentClasses = []string{"post-content", "article-content", "entry-content", "content"}
)

// Result is the extracted article.
type Result struct {
	Title    string
	Markdown string
}

// Importer fetches pages over HTTP.
type Importer struct {
	client *http.Client
}

// Option configures an Importer.
type Option func(*Importer)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) { i.client = c }
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	i := &Importer{client: &http.Client{Timeout: defaultTimeout}}
	for _, o := range opts {
		o(i)
	}
	return i
}

// FromURL downloads url and extracts its main content as Markdown.
func (i *Importer) FromURL(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("importer: %w: %v", apperr.ErrValidation, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("importer: download: %w: %v", apperr.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("fetch %s failed", url)}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("importer: parse html: %w", err)
	}
	return Extract(doc)
}

// Import adapts FromURL to the editor session.
func (i *Importer) Import(ctx context.Context, url string) (*editor.Imported, error) {
	res, err := i.FromURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return &editor.Imported{Title: res.Title, Markdown: res.Markdown}, nil
}

// Extract picks the article container of a parsed page and converts it.
func Extract(doc *html.Node) (*Result, error) {
	strip(doc)

	title := ""
	if h1 := findTag(doc, "h1"); h1 != nil {
		title = textOf(h1)
	} else if t := findTag(doc, "title"); t != nil {
		title = textOf(t)
	}

	node := contentNode(doc)
	if node == nil {
		return nil, apperr.Validation("page has no content")
	}

	md, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		return nil, fmt.Errorf("importer: convert: %w", err)
	}
	return &Result{Title: title, Markdown: strings.TrimSpace(string(md))}, nil
}

func contentNode(doc *html.Node) *html.Node {
	if n := findTag(doc, "article"); n != nil {
		return n
	}
	if n := findTag(doc, "main"); n != nil {
		return n
	}
	for _, cls := range contentClasses {
		if n := findClass(doc, cls); n != nil {
			return n
		}
	}
	return findTag(doc, "body")
}

func strip(doc *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, tag := range strippedTags {
				if n.Data == tag {
					doomed = append(doomed, n)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findClass matches case-insensitively on any substring of the class attribute.
func findClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "class" && strings.Contains(strings.ToLower(attr.Val), class) {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
