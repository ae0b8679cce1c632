package application

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eugenenazirov/sketch-calculator/internal/api"
	"github.com/eugenenazirov/sketch-calculator/internal/calculator"
	"github.com/eugenenazirov/sketch-calculator/internal/config"
	"github.com/eugenenazirov/sketch-calculator/internal/metrics"
	"github.com/eugenenazirov/sketch-calculator/internal/static"
	"github.com/eugenenazirov/sketch-calculator/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage    storage.Storage
	calculator calculator.Calculator
	metrics    *metrics.Recorder
	frontend   *static.Handler
	handler    *api.Handler
	router     http.Handler
	logger     *zap.Logger
	server     *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	staticDir, err := resolveProjectPath(cfg.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("failed to locate frontend bundle: %w", err)
	}
	frontend, err := static.New(staticDir, static.WithDevMode(cfg.IsDev()))
	if err != nil {
		return nil, fmt.Errorf("failed to load frontend bundle: %w", err)
	}

	var recorder *metrics.Recorder
	serviceOpts := []calculator.Option{calculator.WithMaxImageSide(cfg.Vision.MaxImageSide)}
	if cfg.EnableMetrics {
		recorder = metrics.New()
		serviceOpts = append(serviceOpts, calculator.WithObserver(recorder))
	}

	var store storage.Storage
	if cfg.CacheSize > 0 {
		mem, err := storage.NewMemoryStorage(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		store = mem
		serviceOpts = append(serviceOpts, calculator.WithCache(mem))
	}

	analyzer, err := newAnalyzer(cfg.Vision, logger)
	if err != nil {
		return nil, err
	}

	calc := calculator.NewService(analyzer, logger, serviceOpts...)
	handler := api.NewHandler(calc, logger,
		api.WithEnvironment(cfg.Env),
		api.WithMaxBodyBytes(cfg.MaxRequestBytes),
	)

	routerOpts := []api.RouterOption{
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithFrontend(frontend, frontend.Strict()),
	}
	if recorder != nil {
		routerOpts = append(routerOpts, api.WithMetrics(recorder))
	}
	router := api.NewRouter(handler, logger, routerOpts...)

	return &App{
		storage:    store,
		calculator: calc,
		metrics:    recorder,
		frontend:   frontend,
		handler:    handler,
		router:     router,
		logger:     logger,
		server:     NewServer(cfg, router),
	}, nil
}

// newAnalyzer returns the configured vision analyzer. A missing API key is
// not fatal: the frontend keeps working and /calculate answers 503.
func newAnalyzer(cfg config.VisionConfig, logger *zap.Logger) (calculator.Analyzer, error) {
	analyzer, err := calculator.NewVisionAnalyzer(calculator.VisionConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
	}, logger)
	if errors.Is(err, calculator.ErrAnalyzerUnavailable) {
		logger.Warn("calculator disabled", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create vision analyzer: %w", err)
	}
	logger.Info("vision analyzer ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)
	return analyzer, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listen address and serves HTTP in a goroutine. Bind errors
// are returned to the caller.
func (a *App) Start() error {
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}

	a.logger.Info("server listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("frontend", a.frontend.Dir()),
	)
	go func() {
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the fully wrapped root handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// resolveProjectPath locates a file or directory relative to the project root
// by walking up the directory tree. Absolute paths are only checked for existence.
func resolveProjectPath(relative string) (string, error) {
	if filepath.IsAbs(relative) {
		if _, err := os.Stat(relative); err != nil {
			return "", fmt.Errorf("unable to locate %s: %w", relative, err)
		}
		return relative, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
