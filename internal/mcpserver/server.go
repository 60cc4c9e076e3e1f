// Package mcpserver exposes hugopub tools to LLM clients over the Model
// Context Protocol (stdio transport).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hugopub/internal/contentservice"
	"github.com/starford/hugopub/internal/frontmatter"
	"github.com/starford/hugopub/internal/markdown"
)

// Server wraps the MCP server with hugopub tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *contentservice.Service
	renderer *markdown.Renderer
	fetcher  *fetcher
}

// New creates a new MCP server with all tools registered.
func New(svc *contentservice.Service, version string) *Server {
	s := &Server{svc: svc, renderer: markdown.New(), fetcher: newFetcher()}

	s.mcp = server.NewMCPServer(
		"hugopub",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Render Markdown to the HTML shown in the editor preview."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body")),
	), s.renderPreview)

	s.mcp.AddTool(mcp.NewTool("parse_article",
		mcp.WithDescription("Split a stored article into front matter fields and body, with reading stats."),
		mcp.WithString("raw", mcp.Required(), mcp.Description("Full article text including the front matter block")),
	), s.parseArticle)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List indexed articles, newest first."),
		mcp.WithString("dir", mcp.Description("Content directory such as content/posts (empty for all)")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read the full text of a stored article."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Repository path, e.g. content/posts/2024-01-02-hello.md")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through article titles, tags and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("get_article_format",
		mcp.WithDescription("Returns the article format contract. Read it before drafting an article."),
	), s.getArticleFormat)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI and return its Markdown reference."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name for the stored image")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(ArticleFormatURI, "Article Format",
			mcp.WithResourceDescription("Front matter and body format of hugopub articles."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArticleFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func (s *Server) renderPreview(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.renderer.Render(content)), nil
}

type parsedArticle struct {
	FrontMatter    frontmatter.FrontMatter `json:"front_matter"`
	HasFrontMatter bool                    `json:"has_front_matter"`
	Body           string                  `json:"body"`
	Characters     int                     `json:"characters"`
	ReadingMinutes int                     `json:"reading_minutes"`
}

func (s *Server) parseArticle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("raw")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	block := frontmatter.Split(raw)
	stats := markdown.Count(block.Body)
	return jsonResult(parsedArticle{
		FrontMatter:    frontmatter.Parse(block.FrontMatter),
		HasFrontMatter: block.Found,
		Body:           block.Body,
		Characters:     stats.Characters,
		ReadingMinutes: stats.ReadingMinutes,
	})
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	articles, err := s.svc.ListArticles(ctx, optionalString(req, "dir"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(articles) == 0 {
		return mcp.NewToolResultText("no articles found"), nil
	}
	return jsonResult(articles)
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.svc.GetFile(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
	}
	return mcp.NewToolResultText(f.Content), nil
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) getArticleFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readArticleFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ArticleFormatURI,
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
