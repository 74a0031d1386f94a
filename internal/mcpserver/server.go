// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz authoring tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/validate"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp     *server.MCPServer
	source  storage.Provider
	db      manifest.Store
	checker *validate.Checker
}

// New creates a new MCP server with all Ansuz tools registered.
func New(source storage.Provider, db manifest.Store, checker *validate.Checker) *Server {
	s := &Server{source: source, db: db, checker: checker}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through published article content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read the full Markdown source of an article."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the article (e.g. blog/laravel/queues.md)")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List all articles or articles in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("validate_article",
		mcp.WithDescription("Validate article content against the publishing rules without writing anything. "+
			"Content MUST follow the canonical article format (YAML frontmatter with title, date, url, "+
			"description, Markdown body). Read the contract first via the get_article_contract tool "+
			"or the ansuz://article-format resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full article content including frontmatter")),
	), s.validateArticle)

	s.mcp.AddTool(mcp.NewTool("get_article_contract",
		mcp.WithDescription("Returns the canonical Ansuz article format contract. "+
			"Call this before drafting or validating articles to ensure correct structure."),
	), s.getArticleContract)

	// Resource: article format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://article-format", "Article Format Contract",
			mcp.WithResourceDescription("Canonical Markdown article format that all articles must follow."),
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

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.source.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.source.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) validateArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a, err := parser.Parse("draft.md", []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	vs := s.checker.Check(a)
	if len(vs) == 0 {
		return mcp.NewToolResultText("valid"), nil
	}
	out, _ := json.MarshalIndent(vs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getArticleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readArticleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://article-format",
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
