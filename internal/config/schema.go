package config

import (
	"time"

	"github.com/kartescan/kartescan/internal/review"
)

// Config holds kartescan configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	Provider   ProviderCfg   `mapstructure:"provider" yaml:"provider"`
	Embeddings EmbeddingsCfg `mapstructure:"embeddings" yaml:"embeddings"`
	Database   DatabaseCfg   `mapstructure:"database" yaml:"database"`
	Storage    StorageCfg    `mapstructure:"storage" yaml:"storage"`
	Scoring    ScoringCfg    `mapstructure:"scoring" yaml:"scoring"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
	// Workers is the number of concurrent extraction jobs.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// APIKey protects /api/ routes when set. Supports ${ENV_VAR} syntax.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// ProviderCfg configures the vision/chat model provider.
type ProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`     // "gemini"
	Model      string  `mapstructure:"model" yaml:"model"`   // Model name
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
}

// EmbeddingsCfg configures the embedding backend for semantic scoring.
type EmbeddingsCfg struct {
	Model  string `mapstructure:"model" yaml:"model"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	// BaseURL overrides the endpoint for OpenAI-compatible backends.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Timeout bounds each semantic scoring call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Workers bounds concurrent scoring calls per extraction run.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// DatabaseCfg holds Postgres connection and dev-container settings.
type DatabaseCfg struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"` // Supports ${ENV_VAR} syntax
	Name     string `mapstructure:"name" yaml:"name"`
	SSLMode  string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// Managed runs a local Postgres container for development.
	Managed       bool   `mapstructure:"managed" yaml:"managed"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
}

// StorageCfg selects the blob storage backend for uploads.
type StorageCfg struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "local" or "s3"

	// Local backend: directory under the home dir when empty.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// S3 backend.
	Bucket       string `mapstructure:"bucket" yaml:"bucket"`
	Prefix       string `mapstructure:"prefix" yaml:"prefix"`
	Region       string `mapstructure:"region" yaml:"region"`
	Profile      string `mapstructure:"profile" yaml:"profile"`
	UsePathStyle bool   `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// ScoringCfg holds the global fallback review thresholds.
type ScoringCfg struct {
	TextThreshold     float64 `mapstructure:"text_threshold" yaml:"text_threshold"`
	SemanticThreshold float64 `mapstructure:"semantic_threshold" yaml:"semantic_threshold"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host:    "127.0.0.1",
			Port:    "8780",
			Workers: 2,
		},
		Provider: ProviderCfg{
			Type:       "gemini",
			Model:      "gemini-2.0-flash",
			APIKey:     "${GEMINI_API_KEY}",
			RateLimit:  4.0,
			MaxRetries: 5,
		},
		Embeddings: EmbeddingsCfg{
			Model:   "text-embedding-3-small",
			APIKey:  "${OPENAI_API_KEY}",
			Timeout: 15 * time.Second,
			Workers: 4,
		},
		Database: DatabaseCfg{
			Host:          "localhost",
			Port:          "5433",
			User:          "kartescan",
			Password:      "kartescan",
			Name:          "kartescan",
			SSLMode:       "disable",
			Managed:       true,
			ContainerName: "kartescan-postgres",
			Image:         "postgres:16-alpine",
		},
		Storage: StorageCfg{
			Backend: "local",
		},
		Scoring: ScoringCfg{
			TextThreshold:     review.DefaultTextThreshold,
			SemanticThreshold: review.DefaultSemanticThreshold,
		},
	}
}
