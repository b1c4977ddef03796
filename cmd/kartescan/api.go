package main

import (
	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Kartescan server via HTTP.

These commands require a running server (kartescan serve).
Use --server to specify a custom server URL.

Examples:
  kartescan api health                      # Check server health
  kartescan api charts upload chart.pdf     # Upload a chart for extraction
  kartescan api charts get <id>             # Get extraction results
  kartescan api charts review-items <id>    # Fields awaiting human review`,
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Chart upload, results, and review commands",
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Chart template and threshold commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8780", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Charts as subcommand group
	chartsCmd.AddCommand((&endpoints.UploadChartEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.ListChartsEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.GetChartEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.ChartStatusEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.ReprocessChartEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.ChartCSVEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.ListReviewItemsEndpoint{}).Command(getServerURL))
	chartsCmd.AddCommand((&endpoints.ReviewItemEndpoint{}).Command(getServerURL))

	// Templates as subcommand group
	for _, ep := range endpoints.TemplateCommands() {
		templatesCmd.AddCommand(ep.Command(getServerURL))
	}

	// Swagger at top level
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(chartsCmd)
	apiCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(apiCmd)
}
