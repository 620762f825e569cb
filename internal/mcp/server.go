// Package mcp exposes the review engine's two external operations as MCP
// tools, so an agent runtime can drive fetch-and-comment itself while the
// position math stays on this side of the boundary.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/prreview/internal/build"
	"github.com/roasbeef/prreview/internal/gateway"
)

// Server wraps the MCP server with the gateway the tools call through.
type Server struct {
	server *mcp.Server
	gw     gateway.Gateway
	log    *slog.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	// Gateway is the code-hosting gateway the tools operate through.
	Gateway gateway.Gateway

	// Logger is the server logger. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// NewServer creates an MCP server with the review tools registered.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "prreview",
		Version: build.Version(),
	}, nil)

	s := &Server{
		server: mcpServer,
		gw:     cfg.Gateway,
		log:    log.With("component", "mcp"),
	}

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// registerTools registers the review tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "fetch_pr_files",
		Description: "Fetch a pull request's changed files with " +
			"their unified-diff patches",
	}, s.handleFetchPRFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "post_inline_comments",
		Description: "Post inline review comments on a pull " +
			"request; comments target new-file line numbers on " +
			"added lines and positions are resolved server-side",
	}, s.handlePostInlineComments)
}
