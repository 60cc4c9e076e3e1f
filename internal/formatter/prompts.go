package formatter

import (
	"fmt"
	"strings"
)

const (
	systemEditor = "You are an experienced blog editor. You lay out articles as clean Markdown for the Hugo static site generator."
	systemTitle  = "You are a blog editor who writes short, accurate article titles."
	systemTags   = "You recommend tags for blog articles."
)

func formatPrompt(in Input) string {
	title := in.Title
	if title == "" {
		title = "(to be decided)"
	}
	category := in.Category
	if category == "" {
		category = "(none)"
	}
	tags := "(none)"
	if len(in.Tags) > 0 {
		tags = strings.Join(in.Tags, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Edit the following article.\n\n")
	fmt.Fprintf(&b, "Title: %s\nCategory: %s\nTags: %s\n\n", title, category, tags)
	b.WriteString("Rules:\n")
	b.WriteString("- Fix typos and grammar without changing the meaning.\n")
	b.WriteString("- Organize the text with H2 and H3 headings where it helps.\n")
	b.WriteString("- Use standard Markdown only and label every code block with its language.\n")
	b.WriteString("- Keep existing image links unchanged; new images use ![alt](/images/name).\n")
	b.WriteString("- Do not add YAML front matter and do not repeat the title as an H1.\n")
	b.WriteString("- Reply with the article body only, without explanations or surrounding code fences.\n\n")
	b.WriteString("Article:\n")
	b.WriteString(in.Content)
	return b.String()
}

func titlePrompt(content string) string {
	return "Write a title of at most 30 characters that summarizes this article. Reply with the title only.\n\n" + content
}

func tagsPrompt(content string, existing []string) string {
	var b strings.Builder
	b.WriteString("Recommend 5 to 8 common, easy to understand tags for this article. ")
	b.WriteString(`Reply with a JSON array only, for example ["go", "hugo"].`)
	if len(existing) > 0 {
		fmt.Fprintf(&b, "\nExisting tags: %s", strings.Join(existing, ", "))
	}
	b.WriteString("\n\n")
	b.WriteString(content)
	return b.String()
}
