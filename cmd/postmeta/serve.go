package main

import (
	"fmt"
	"os"

	"github.com/artpar/postmeta/bootstrap"
	"github.com/artpar/postmeta/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the postmeta HTTP server.

The server will:
  - Load configuration from postmeta.yaml (or --config)
  - Or load configuration from POSTMETA_* environment variables
  - Open the database and apply migrations
  - Register the configured fields
  - Serve the JSON:API surface under /api/v2

Environment variables:
  POSTMETA_DATABASE_DRIVER  - sqlite or memory (default: sqlite)
  POSTMETA_DATABASE_DSN     - Database path (default: postmeta.db)
  POSTMETA_SERVER_PORT      - Server port (default: 8080)
  POSTMETA_AUTH_JWT_SECRET  - Secret used to sign bearer tokens
  POSTMETA_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  postmeta serve
  postmeta serve --config /etc/postmeta/config.yaml
  postmeta serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload configuration when the file changes or on SIGHUP")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	}

	if _, err := os.Stat(cfgFile); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Running with environment variables (no config file)")
	} else if !hotReload {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		opts.Config = cfg
	}

	app, err := bootstrap.New(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run(cmd.Context())
}
