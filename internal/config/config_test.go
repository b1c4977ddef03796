package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("KARTESCAN_TEST_KEY", "secret-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", "no-vars-here", "no-vars-here"},
		{"single var", "${KARTESCAN_TEST_KEY}", "secret-value"},
		{"embedded var", "prefix-${KARTESCAN_TEST_KEY}-suffix", "prefix-secret-value-suffix"},
		{"unset var", "${KARTESCAN_UNSET_VAR}", ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEnvVars(tt.input); got != tt.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider.Type != "gemini" {
		t.Errorf("provider type = %q", cfg.Provider.Type)
	}
	if cfg.Scoring.TextThreshold != 0.8 || cfg.Scoring.SemanticThreshold != 0.8 {
		t.Errorf("default thresholds = %v/%v, want 0.8/0.8",
			cfg.Scoring.TextThreshold, cfg.Scoring.SemanticThreshold)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("storage backend = %q", cfg.Storage.Backend)
	}
	if !cfg.Database.Managed {
		t.Error("dev database should be managed by default")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"provider:", "database:", "scoring:", "${GEMINI_API_KEY}"} {
		if !strings.Contains(content, want) {
			t.Errorf("config file missing %q", want)
		}
	}
}
