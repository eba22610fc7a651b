package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath holds the --config persistent flag; empty means the default
// search locations.
var configPath string

// rootCmd represents the base command for the gridcal application
var rootCmd = &cobra.Command{
	Use:   "gridcal",
	Short: "Syncs a Google Calendar session into a local grid view",
	Long: `gridcal keeps a signed-in Google Calendar session and mirrors the
upcoming events into a local store that a grid-style calendar view
consumes over a localhost API.

It can run as:
  - A long-running daemon serving the view API (default)
  - An MCP (Model Context Protocol) server for AI assistants
  - One-shot commands for sign-in, sign-out and agenda listing`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gridcal version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the TOML config file (default: ./gridcal.toml, then ~/.config/gridcal/gridcal.toml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newAgendaCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gridcal version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gridcal version %s\n", version)
		},
	}
}
