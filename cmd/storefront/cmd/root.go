// Package cmd provides the CLI commands for the storefront.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/config"
)

var cfgFile string
var stateFilePath string
var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront - catalog, cart and checkout",
	Long: `Storefront is a small e-commerce core: a product catalog, a persistent
shopping cart, a checkout calculator and a mock customer session.

Quick start:
  storefront products list
  storefront cart add 1 --quantity 2
  storefront checkout quote --shipping express
  storefront serve

Configuration:
  Config is loaded from storefront.yaml in the current directory,
  $HOME/.storefront/, or /etc/storefront/.

  Environment variables can override config values with the STOREFRONT_ prefix.
  Example: STOREFRONT_STORAGE_BACKEND=sqlite

Commands:
  products    Browse the catalog
  cart        Show and change the cart
  checkout    Price the cart and place a demo order
  account     Sign up, sign in and sign out
  serve       Run the HTTP API
  stop        Stop a running HTTP server
  mcp         Serve the storefront as MCP tools over stdio
  reset       Remove the persisted cart and session state
  version     Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./storefront.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateFilePath, "state", "", "path to the state file or database (overrides storage.path)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func initConfig() {
	config.InitViper(cfgFile)
}
