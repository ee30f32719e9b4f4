package main

import (
	"fmt"
	"io"
	"os"

	"github.com/artpar/postmeta/bootstrap"
	"github.com/artpar/postmeta/core/formatter"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "postmeta",
	Short: "Posts with registered metadata fields over a JSON:API surface",
	Long: `postmeta serves posts and their registered metadata fields.

Fields such as custom_meta are declared in the configuration file,
validated and sanitized on write, and gated by the "edit this post"
capability.

Quick start:
  postmeta serve                     # Start the HTTP server
  postmeta users create --email=...  # Create a user
  postmeta keys create --user=...    # Issue an API key

Inspection:
  postmeta fields list               # Show registered fields
  postmeta validate                  # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "postmeta.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
}

// openApp builds the application for one-shot commands. Logs are
// discarded so command output stays clean.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	a, err := bootstrap.New(cmd.Context(), bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	if a.Config.Database.Driver == "memory" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: database.driver is memory, changes are not persisted")
	}
	return a, nil
}

func output() (formatter.Formatter, error) {
	f, ok := formatter.Get(outputFormat)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", outputFormat, formatter.List())
	}
	return f, nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
