package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kartescan/kartescan/internal/config"
)

func TestNewRequiresConfigManager(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error when config manager is missing")
	}
}

func TestDatabaseConfigDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	dbCfg := databaseConfig(cfg)

	if dbCfg.Host != "localhost" {
		t.Errorf("host = %q, want localhost", dbCfg.Host)
	}
	if dbCfg.Port != "5433" {
		t.Errorf("port = %q, want 5433", dbCfg.Port)
	}
	if dbCfg.Database != "kartescan" {
		t.Errorf("database = %q, want kartescan", dbCfg.Database)
	}
	if dbCfg.SSLMode != "disable" {
		t.Errorf("ssl mode = %q, want disable", dbCfg.SSLMode)
	}
}

func TestDatabaseConfigOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Host = "db.internal"
	cfg.Database.Port = "5432"
	cfg.Database.User = "app"
	cfg.Database.Name = "charts"
	cfg.Database.SSLMode = "require"

	dbCfg := databaseConfig(cfg)
	if dbCfg.Host != "db.internal" {
		t.Errorf("host = %q, want db.internal", dbCfg.Host)
	}
	if dbCfg.Port != "5432" {
		t.Errorf("port = %q, want 5432", dbCfg.Port)
	}
	if dbCfg.User != "app" {
		t.Errorf("user = %q, want app", dbCfg.User)
	}
	if dbCfg.Database != "charts" {
		t.Errorf("database = %q, want charts", dbCfg.Database)
	}
	if dbCfg.SSLMode != "require" {
		t.Errorf("ssl mode = %q, want require", dbCfg.SSLMode)
	}
}

func TestRequireAPIKey(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := requireAPIKey("secret", inner)

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"api route without key", "/api/charts", "", http.StatusUnauthorized},
		{"api route wrong key", "/api/charts", "nope", http.StatusUnauthorized},
		{"api route right key", "/api/charts", "secret", http.StatusOK},
		{"health stays open", "/health", "", http.StatusOK},
		{"swagger stays open", "/swagger.json", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestDatabaseConfigResolvesPasswordEnv(t *testing.T) {
	t.Setenv("KARTESCAN_TEST_DB_PW", "s3cret")

	cfg := config.DefaultConfig()
	cfg.Database.Password = "${KARTESCAN_TEST_DB_PW}"

	dbCfg := databaseConfig(cfg)
	if dbCfg.Password != "s3cret" {
		t.Errorf("password = %q, want s3cret", dbCfg.Password)
	}
}
