package markdown

import (
	"strings"
	"testing"
)

func TestRender_Deterministic(t *testing.T) {
	src := "# Title\n\nSome **bold** text with `code` and [a link](https://example.com).\n\n- one\n- two\n"
	first := Render(src)
	for i := 0; i < 5; i++ {
		if got := Render(src); got != first {
			t.Fatalf("render %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestRender_Emphasis(t *testing.T) {
	got := Render("**bold** and *italic*")
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("missing strong: %s", got)
	}
	if !strings.Contains(got, "<em>italic</em>") {
		t.Errorf("missing em: %s", got)
	}
	if got != "<p><strong>bold</strong> and <em>italic</em></p>" {
		t.Errorf("render = %q", got)
	}
}

func TestRender_FencedCode(t *testing.T) {
	got := Render("```js\ncode\n```")
	want := `<pre><code class="language-js">code</code></pre>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRender_FenceProtectsContent(t *testing.T) {
	got := Render("```\n# not a heading\n**not bold** <b>\n```")
	want := "<pre><code># not a heading\n**not bold** &lt;b&gt;</code></pre>"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRender_InlineCodeProtectsEmphasis(t *testing.T) {
	got := Render("use `**x**` here")
	if got != "<p>use <code>**x**</code> here</p>" {
		t.Errorf("render = %q", got)
	}
}

func TestRender_Headings(t *testing.T) {
	got := Render("# One\n## Two\n### Three")
	want := "<h1>One</h1>\n<h2>Two</h2>\n<h3>Three</h3>"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRender_ImageBeforeLink(t *testing.T) {
	got := Render("![alt](/images/a.png) and [site](https://x.dev)")
	want := `<p><img src="/images/a.png" alt="alt"> and <a href="https://x.dev" target="_blank">site</a></p>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRender_ListGrouping(t *testing.T) {
	got := Render("- a\n- b\n\ntext\n\n1. x\n2. y")
	want := "<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n<p>text</p>\n<ol>\n<li>x</li>\n<li>y</li>\n</ol>"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRender_BlockquoteMerge(t *testing.T) {
	got := Render("> first\n> second")
	if got != "<blockquote>first<br>second</blockquote>" {
		t.Errorf("render = %q", got)
	}
}

func TestRender_StripsNUL(t *testing.T) {
	got := Render("a\x00C0\x00b")
	if strings.Contains(got, "\x00") {
		t.Errorf("NUL leaked into output: %q", got)
	}
}

func TestStages_Order(t *testing.T) {
	pos := map[string]int{}
	for i, s := range New().Stages() {
		pos[s.Name] = i
	}
	for _, before := range []string{"fences", "inline-code"} {
		for _, after := range []string{"headings", "emphasis", "links", "list-items"} {
			if pos[before] >= pos[after] {
				t.Errorf("stage %s must run before %s", before, after)
			}
		}
	}
	if pos["list-items"] >= pos["list-groups"] {
		t.Error("list items must be emitted before grouping")
	}
	if pos["images"] >= pos["links"] {
		t.Error("images must run before links")
	}
}

func TestCount(t *testing.T) {
	s := Count("你好 world\n\n")
	if s.Characters != 7 {
		t.Errorf("characters = %d, want 7", s.Characters)
	}
	if s.ReadingMinutes != 1 {
		t.Errorf("minutes = %d, want 1", s.ReadingMinutes)
	}
	if got := Count(strings.Repeat("a", 401)).ReadingMinutes; got != 3 {
		t.Errorf("minutes = %d, want 3", got)
	}
	if got := Count("").ReadingMinutes; got != 0 {
		t.Errorf("minutes = %d, want 0", got)
	}
}
