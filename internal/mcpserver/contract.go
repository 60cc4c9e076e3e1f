package mcpserver

// ArticleFormatURI identifies the article format resource.
const ArticleFormatURI = "hugopub://article-format"

// ArticleFormatContract describes the Markdown article format the publisher
// writes and reads back.
const ArticleFormatContract = `# hugopub Article Format

Every article is a Hugo Markdown file with a front matter block.

## Structure

` + "```" + `markdown
---
title: "Human readable title"
date: "2024-03-04T10:20:30+08:00"
draft: true
categories: [ "tech" ]
tags: [ "go", "hugo" ]
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. The block opens with ` + "`---`" + ` on the first non-blank line and closes with the next ` + "`---`" + `.
2. Only ` + "`title`" + `, ` + "`date`" + `, ` + "`categories`" + ` and ` + "`tags`" + ` are read; other keys are ignored.
3. Scalars are double quoted; lists use the inline bracket form ` + "`[ \"a\", \"b\" ]`" + `.
4. ` + "`draft: true`" + ` is written only for drafts.
5. Dates are read up to the first ` + "`T`" + ` or space for display; the full value is kept in the file.
6. Do not repeat the title as an H1 in the body.
7. File names are ` + "`YYYY-MM-DD-<slug>.md`" + ` under a configured content directory such as ` + "`content/posts`" + `.

## Images

- Upload images with the ` + "`upload_asset`" + ` tool; it returns a ready ` + "`markdownImage`" + ` snippet.
- Images are stored in ` + "`static/images/`" + ` and referenced as ` + "`![alt](/images/name.png)`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, bmp. Maximum size 10 MB.

## Preview

The preview renderer supports headings, emphasis, inline code, fenced code,
links, images, block quotes, lists and horizontal rules. Tables and
footnotes are shown as plain paragraphs.
`
