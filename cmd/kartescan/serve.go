package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/config"
	"github.com/kartescan/kartescan/internal/server"
	"github.com/kartescan/kartescan/internal/server/endpoints"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Kartescan server",
	Long: `Start the Kartescan HTTP server.

This starts the HTTP API server, the background extraction workers, and
(when database.managed is set) the local Postgres container. When the
server shuts down (via Ctrl+C or SIGTERM), Postgres is also stopped.

The server provides:
  - /health       - Basic server health check
  - /ready        - Readiness check (includes database status)
  - /api/charts   - Chart upload, status, results, review, CSV export
  - /api/templates - Chart templates and per-field thresholds

Examples:
  kartescan serve                    # Start on default port 8780
  kartescan serve --port 3000        # Start on custom port
  kartescan serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := getHome()
		if err != nil {
			return err
		}

		// Seed a default config file on first run
		if cfgFile == "" && !h.ConfigExists() {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return fmt.Errorf("failed to write default config: %w", err)
			}
			logger.Info("wrote default config", "path", h.ConfigPath())
		}

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:            serveHost,
			Port:            servePort,
			ConfigManager:   cfgMgr,
			Home:            h,
			Logger:          logger,
			SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
