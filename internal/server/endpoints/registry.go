package endpoints

import (
	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/store"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DockerManager   *store.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DockerManager: cfg.DockerManager},

		// Chart endpoints
		&UploadChartEndpoint{},
		&ListChartsEndpoint{},
		&GetChartEndpoint{},
		&ChartStatusEndpoint{},
		&ReprocessChartEndpoint{},
		&ChartCSVEndpoint{},

		// Review endpoints
		&ListReviewItemsEndpoint{},
		&ReviewItemEndpoint{},

		// Template endpoints
		&CreateTemplateEndpoint{},
		&ListTemplatesEndpoint{},
		&GetTemplateEndpoint{},
		&UpdateTemplateEndpoint{},
		&DeleteTemplateEndpoint{},
		&GetThresholdsEndpoint{},
		&PutThresholdsEndpoint{},
		&ResetThresholdsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// TemplateCommands returns endpoints for template operations.
// This groups template-related commands under "templates" subcommand.
func TemplateCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateTemplateEndpoint{},
		&ListTemplatesEndpoint{},
		&GetTemplateEndpoint{},
		&UpdateTemplateEndpoint{},
		&DeleteTemplateEndpoint{},
		&GetThresholdsEndpoint{},
		&PutThresholdsEndpoint{},
		&ResetThresholdsEndpoint{},
	}
}
