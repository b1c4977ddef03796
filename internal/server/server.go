package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/internal/config"
	"github.com/kartescan/kartescan/internal/extract"
	"github.com/kartescan/kartescan/internal/home"
	"github.com/kartescan/kartescan/internal/jobs"
	"github.com/kartescan/kartescan/internal/providers"
	"github.com/kartescan/kartescan/internal/server/endpoints"
	"github.com/kartescan/kartescan/internal/similarity"
	"github.com/kartescan/kartescan/internal/storage"
	"github.com/kartescan/kartescan/internal/store"
	"github.com/kartescan/kartescan/internal/svcctx"
)

// Server is the main Kartescan HTTP server.
// When the database is managed it owns the Postgres container lifecycle,
// starting it on server start and stopping it on shutdown.
type Server struct {
	httpServer    *http.Server
	dockerManager *store.DockerManager
	db            *store.Store
	blobs         storage.Store
	jobManager    *jobs.Manager
	configMgr     *config.Manager
	homeDir       *home.Dir
	logger        *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host overrides the configured bind address.
	Host string
	// Port overrides the configured listen port.
	Port string
	// ConfigManager provides configuration with hot-reload support.
	ConfigManager *config.Manager
	// Home is the kartescan home directory.
	Home *home.Dir
	// Logger is the structured logger to use.
	Logger *slog.Logger
	// SwaggerSpecPath is the path to swagger.json.
	SwaggerSpecPath string
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}
	if cfg.Port == "" {
		cfg.Port = "8780"
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}

	if appCfg.Database.Managed {
		dm, err := store.NewDockerManager(store.DockerConfig{
			ContainerName: appCfg.Database.ContainerName,
			Image:         appCfg.Database.Image,
			DataPath:      cfg.Home.PostgresPath(),
			HostPort:      appCfg.Database.Port,
			Database:      databaseConfig(appCfg),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create docker manager: %w", err)
		}
		s.dockerManager = dm
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		DockerManager:   s.dockerManager,
		SwaggerSpecPath: cfg.SwaggerSpecPath,
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	handler := s.withServices(mux)
	if key := config.ResolveEnvVars(appCfg.Server.APIKey); key != "" {
		handler = requireAPIKey(key, handler)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// databaseConfig maps the application config onto store settings.
func databaseConfig(cfg *config.Config) store.Config {
	dbCfg := store.DefaultConfig()
	if cfg.Database.Host != "" {
		dbCfg.Host = cfg.Database.Host
	}
	if cfg.Database.Port != "" {
		dbCfg.Port = cfg.Database.Port
	}
	if cfg.Database.User != "" {
		dbCfg.User = cfg.Database.User
	}
	if pw := config.ResolveEnvVars(cfg.Database.Password); pw != "" {
		dbCfg.Password = pw
	}
	if cfg.Database.Name != "" {
		dbCfg.Database = cfg.Database.Name
	}
	if cfg.Database.SSLMode != "" {
		dbCfg.SSLMode = cfg.Database.SSLMode
	}
	return dbCfg
}

// Start starts the server and its backing services.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	appCfg := s.configMgr.Get()

	// Start the managed Postgres container if configured
	if s.dockerManager != nil {
		s.logger.Info("starting postgres container")
		if err := s.dockerManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start postgres: %w", err)
		}
		if err := s.dockerManager.WaitReady(ctx, 60*time.Second); err != nil {
			s.setNotRunning()
			return fmt.Errorf("postgres not ready: %w", err)
		}
		s.logger.Info("postgres is ready")
	}

	// Open the database and run migrations
	db, err := store.Open(databaseConfig(appCfg), s.logger)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Blob storage for uploaded charts
	s.blobs, err = s.openBlobStore(ctx, appCfg)
	if err != nil {
		_ = s.shutdown()
		return err
	}

	// Extraction pipeline: vision chat + embedding-backed scoring
	pipeline, err := s.buildPipeline(appCfg)
	if err != nil {
		_ = s.shutdown()
		return err
	}

	s.jobManager, err = jobs.NewManager(jobs.Config{
		Store:     s.db,
		Blobs:     s.blobs,
		Extractor: pipeline,
		Logger:    s.logger,
		Workers:   appCfg.Server.Workers,
	})
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to create job manager: %w", err)
	}
	s.jobManager.Start(ctx)

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:      s.db,
		Blobs:      s.blobs,
		JobManager: s.jobManager,
		Config:     s.configMgr,
		Logger:     s.logger,
		Home:       s.homeDir,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// openBlobStore creates the configured blob storage backend.
func (s *Server) openBlobStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "", "local":
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = s.homeDir.UploadsPath()
		}
		blobs, err := storage.NewLocalStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}
		return blobs, nil
	case "s3":
		blobs, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.Storage.Prefix,
			Region:       cfg.Storage.Region,
			Profile:      cfg.Storage.Profile,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 storage: %w", err)
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildPipeline wires the chat provider, embedder, and scoring engine.
func (s *Server) buildPipeline(cfg *config.Config) (*extract.Pipeline, error) {
	if cfg.Provider.Type != "" && cfg.Provider.Type != "gemini" {
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
	chat := providers.NewGeminiClient(providers.GeminiConfig{
		APIKey:     config.ResolveEnvVars(cfg.Provider.APIKey),
		Model:      cfg.Provider.Model,
		MaxRetries: cfg.Provider.MaxRetries,
		RateLimit:  cfg.Provider.RateLimit,
	})

	embedder := providers.NewOpenAIEmbedder(providers.OpenAIEmbedderConfig{
		APIKey:  config.ResolveEnvVars(cfg.Embeddings.APIKey),
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
	})
	scorer, err := similarity.NewEmbeddingScorer(similarity.EmbeddingScorerConfig{
		Embedder: embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create semantic scorer: %w", err)
	}
	engine := similarity.NewEngine(scorer, cfg.Embeddings.Timeout)

	pipeline, err := extract.New(extract.Config{
		Chat:            chat,
		Engine:          engine,
		Logger:          s.logger,
		Model:           cfg.Provider.Model,
		SemanticWorkers: cfg.Embeddings.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction pipeline: %w", err)
	}
	return pipeline, nil
}

// shutdown performs graceful shutdown of the HTTP server and backing services.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.jobManager != nil {
		s.jobManager.Stop()
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		}
	}

	if s.dockerManager != nil {
		s.logger.Info("stopping postgres container")
		if err := s.dockerManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("postgres stop error", "error", err)
		}
		if err := s.dockerManager.Close(); err != nil {
			s.logger.Error("docker manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// DB returns the database store.
// Returns nil if the server hasn't started yet.
func (s *Server) DB() *store.Store {
	return s.db
}

// JobManager returns the job manager.
// Returns nil if the server hasn't started yet.
func (s *Server) JobManager() *jobs.Manager {
	return s.jobManager
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAPIKey guards /api/ routes with a shared key. Health and
// swagger routes stay open.
func requireAPIKey(key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && r.Header.Get("X-API-Key") != key {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid or missing API key"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the database or job manager aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil || s.jobManager == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
