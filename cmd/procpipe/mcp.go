package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wagiedev/procpipe"
	"github.com/wagiedev/procpipe/internal/logging"
)

func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the run_process tool to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logging.ContextAttrs(cmd.Context(), slog.String("cmd", "mcp"))

			server := procpipe.NewExecServer("procpipe", buildVersion(), a.options()...)
			a.log.InfoContext(ctx, "Serving MCP over stdio", "tool", procpipe.RunProcessTool)

			return server.Serve(ctx)
		},
	}
}
