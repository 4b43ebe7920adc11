package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients request reviews and read the session history.
Configure the client with:

  {
    "mcpServers": {
      "revu": { "command": "revu", "args": ["mcp"] }
    }
  }

Available tools: revu_analyze, revu_list_sessions, revu_get_session,
revu_delete_session, revu_analytics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmdContext(cmd)
		s, err := getServices(ctx)
		if err != nil {
			return err
		}
		srv := mcp.NewServer(s.reviewer, s.sessions, s.local, buildVersion)
		return srv.ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
