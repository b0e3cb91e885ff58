package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/adapter/inbound/mcp"
	"github.com/lumenshop/storefront/internal/adapter/inbound/stdio"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the storefront as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the catalog,
cart, checkout and session as tools. Logs go to stderr.

Example client configuration:
  {"command": "storefront", "args": ["mcp", "--state", "/path/to/storefront.json"]}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), gracefulSignals()...)
		defer stop()

		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.logger.Error("shutdown failed", "error", err)
			}
		}()

		server := mcp.NewServer(mcp.Implementation{Name: "storefront", Version: Version}, a.logger)
		mcp.RegisterTools(server, mcp.Services{
			Catalog:  a.catalogs,
			Carts:    a.carts,
			Checkout: a.checkouts,
			Accounts: a.accounts,
		})

		transport := stdio.NewStdioTransport(server, stdio.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()))
		defer transport.Close()

		a.logger.Info("serving MCP over stdio", "tools", len(server.Tools()))
		return transport.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
