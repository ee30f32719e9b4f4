package main

import (
	"fmt"
	"os"

	"github.com/artpar/postmeta/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the postmeta configuration file.

Checks:
  - YAML syntax is valid
  - Settings are within range
  - Every field declaration is valid and free of conflicts

Examples:
  postmeta validate
  postmeta validate --config /etc/postmeta/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Listen:   %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "  Database: %s %s\n", cfg.Database.Driver, cfg.Database.DSN)
	fmt.Fprintf(out, "  Fields:   %d\n", len(cfg.Fields))
	for _, f := range cfg.Fields {
		fmt.Fprintf(out, "    - %s (%s)\n", f.Name, f.Schema.Type)
	}
	return nil
}
