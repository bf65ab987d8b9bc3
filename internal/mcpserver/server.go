// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Basalt search and query tools for LLM integration via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/bases"
	"github.com/starford/basalt/internal/noteservice"
	"github.com/starford/basalt/internal/search"
)

const filterSyntaxURI = "basalt://filter-syntax"

// Server wraps the MCP server with Basalt tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with all Basalt tools registered.
func New(svc *noteservice.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"Basalt",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Ranked full-text search over note filenames and content. "+
			"Returns compact results: p=path, t=title, ex=excerpt, mc=match count, ln=line, uri=deep link."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms separated by spaces")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 5, max 20)")),
		mcp.WithBoolean("searchContent", mcp.Description("Search note bodies (default true)")),
		mcp.WithBoolean("searchFrontmatter", mcp.Description("Search YAML frontmatter (default false)")),
		mcp.WithBoolean("caseSensitive", mcp.Description("Match case exactly (default false)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("query_base",
		mcp.WithDescription("Run a .base query: filter, sort and limit notes by frontmatter and file metadata. "+
			"Call get_filter_syntax for the expression language."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the .base file")),
		mcp.WithString("view", mcp.Description("Name of the view to apply")),
		mcp.WithNumber("limit", mcp.Description("Maximum notes (default view limit or 50, max 100)")),
		mcp.WithBoolean("includeFrontmatter", mcp.Description("Include each note's frontmatter as fm")),
	), s.queryBase)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List visible notes, optionally within a folder or with a tag."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
		mcp.WithString("tag", mcp.Description("Optional tag the notes must carry")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_filter_syntax",
		mcp.WithDescription("Returns the filter expression and .base view reference. "+
			"Call this before writing or interpreting base filters."),
	), s.getFilterSyntax)

	s.mcp.AddResource(
		mcp.NewResource(filterSyntaxURI, "Filter Syntax",
			mcp.WithResourceDescription("Filter expressions and .base view format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFilterSyntaxResource,
	)

	return s
}

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
// Transport errors go to the structured logger since out carries the protocol.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, search.Params{
		Query:             query,
		Limit:             req.GetInt("limit", 0),
		SearchContent:     optionalBool(req, "searchContent"),
		SearchFrontmatter: optionalBool(req, "searchFrontmatter"),
		CaseSensitive:     req.GetBool("caseSensitive", false),
	})
	if err != nil {
		return s.toolError("search_notes", err), nil
	}
	return jsonResult(results)
}

func (s *Server) queryBase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.QueryBase(ctx, bases.Params{
		Path:               path,
		View:               req.GetString("view", ""),
		Limit:              req.GetInt("limit", 0),
		IncludeFrontmatter: req.GetBool("includeFrontmatter", false),
	})
	if err != nil {
		return s.toolError("query_base", err), nil
	}
	return jsonResult(res)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return s.toolError("read_note", err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListNotes(ctx, noteservice.ListParams{
		Dir: req.GetString("folder", ""),
		Tag: req.GetString("tag", ""),
	})
	if err != nil {
		return s.toolError("list_notes", err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getFilterSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FilterSyntax), nil
}

func (s *Server) readFilterSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      filterSyntaxURI,
			MIMEType: "text/markdown",
			Text:     FilterSyntax,
		},
	}, nil
}

// toolError turns caller mistakes into their message and hides the rest.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrInvalidArgument) || errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	s.logger.Error("mcp tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError("internal error")
}

// optionalBool distinguishes an absent flag from an explicit false.
func optionalBool(req mcp.CallToolRequest, key string) *bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
