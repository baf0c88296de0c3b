package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/mcp"
	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/jingkaihe/skillcat/pkg/version"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the catalog as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing four tools:
list_skills, search_skills, get_skill and fetch_attachment.

Add it to an MCP client configuration as:

  {"command": "skillcat", "args": ["mcp", "--root", "/path/to/skills"]}

Logs are written to stderr so they never corrupt the protocol stream.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// stdout carries the protocol.
		presenter.SetQuiet(true)

		watch, _ := cmd.Flags().GetBool("watch")
		fromSnapshot, _ := cmd.Flags().GetBool("from-snapshot")

		catalog := openCatalog(ctx, fromSnapshot)
		if watch {
			startWatcher(ctx, catalog)
		}

		srv, err := mcp.NewServer(catalog, version.Get().Version)
		if err != nil {
			presenter.Error(err, "failed to create MCP server")
			os.Exit(1)
		}

		if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
			logger.G(ctx).WithError(err).Error("MCP server error")
			presenter.Error(err, "MCP server failed")
			os.Exit(1)
		}
	},
}

func init() {
	mcpCmd.Flags().Bool("watch", false, "Rebuild the index when files under the root change")
	mcpCmd.Flags().Bool("from-snapshot", false, "Start from the latest saved snapshot instead of building")
}
