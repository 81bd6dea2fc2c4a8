package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dzhechko/B2BSalesAI/internal/mcpserver"
)

// version is set at build time.
var version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve enrichment tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("user") {
			cfg.MCP.UserID = userID
		}

		env, err := initApp(ctx, "mcp")
		if err != nil {
			return err
		}
		defer env.Close()

		return mcpserver.New(env.Service, cfg.MCP.UserID, version).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
