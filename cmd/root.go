package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxtriage application
var rootCmd = &cobra.Command{
	Use:   "inboxtriage",
	Short: "Turns unread Gmail into Google Tasks and Calendar entries",
	Long: `inboxtriage reads your recent unread email, asks a language model to
classify each message against your ranked topic preferences and creates
Google Tasks and Calendar entries for the ones that need action.

It can run as:
  - A standalone CLI tool (organize is the default command)
  - An HTTP and MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Global flags shared by every command.
var (
	configPath string
	debugMode  bool
	logFormat  string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxtriage version %s\n" .Version}}`)

	// If no subcommand is provided, run the organize command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "organize")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (default: $XDG_CONFIG_HOME/inboxtriage/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides log.format)")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newTopicsCmd())
	rootCmd.AddCommand(newPreferencesCmd())
	rootCmd.AddCommand(newOrganizeCmd())
	rootCmd.AddCommand(newActionsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
