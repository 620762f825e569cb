package commands

import (
	"context"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/prreview/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd serves the review tools over MCP on stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the review tools over MCP",
	Long: `Run an MCP server on stdio exposing fetch_pr_files and
post_inline_comments, so an agent runtime can drive the review while
diff parsing and position resolution stay local.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	log, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	gw, err := newGateway(log)
	if err != nil {
		return err
	}

	server := mcp.NewServer(mcp.Config{
		Gateway: gw,
		Logger:  log,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	log.Info("Starting MCP server on stdio")

	return server.Run(ctx, &sdkmcp.StdioTransport{})
}
