package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"

	"sensorcli/internal/config"
	apierrors "sensorcli/internal/errors"
	"sensorcli/internal/infrastructure"
	custommw "sensorcli/internal/middleware"
	"sensorcli/internal/services"
	"sensorcli/internal/storage"
	handlers "sensorcli/internal/transport/http"
	"sensorcli/internal/tsdb"
	ws "sensorcli/internal/websocket"
)

// BuildTime is set at compile time with -ldflags "-X".
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.ProcessingMetrics
	Store          *storage.Store
	Points         *tsdb.Client
	WebSocketHub   *ws.Hub
	MetricsService *services.MetricsService
	HealthService  *services.HealthService

	errorHandler *apierrors.ErrorHandler
	listener     net.Listener
	serveErr     chan error
}

// NewApplication wires every component from cfg. A nil cfg is loaded with
// config.Load; a nil logger is built from cfg.Logging.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if logger == nil {
		logCfg := cfg.Logging
		if logCfg.FilePath != "" && !filepath.IsAbs(logCfg.FilePath) {
			logCfg.FilePath = paths.GetLogPath(filepath.Base(logCfg.FilePath))
		}
		logger, err = infrastructure.InitializeLogger(logCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewProcessingMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := a.initializeServices(context.Background()); err != nil {
		a.closeResources(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices opens the sinks and builds the services
func (a *Application) initializeServices(ctx context.Context) error {
	if a.Config.Storage.Enabled {
		store, err := storage.Open(storage.Config{
			Path:        a.Paths.DatabaseFile,
			BusyTimeout: a.Config.Storage.BusyTimeout,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}
		a.Store = store
	}

	points, err := tsdb.Connect(a.Config.InfluxDB, a.Logger)
	switch {
	case err == nil:
		a.Points = points
	case errors.Is(err, tsdb.ErrDisabled):
	default:
		// The time-series sink is optional; run without it.
		a.Logger.WarnContext(ctx, "InfluxDB unavailable, continuing without time-series sink",
			slog.String("error", err.Error()))
	}

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.WebSocketHub.Start()

	// Interfaces are only set for live components so nil checks in the
	// services see a true nil.
	deps := services.Dependencies{Hub: a.WebSocketHub, Metrics: a.Metrics}
	health := services.HealthOptions{
		Version:   config.AppVersion,
		BuildTime: BuildTime,
		Paths:     a.Paths,
		Hub:       a.WebSocketHub,
	}
	if a.Store != nil {
		deps.Store = a.Store
		health.Store = a.Store
	}
	if a.Points != nil {
		deps.Points = a.Points
		health.Points = a.Points
	}

	a.MetricsService = services.NewMetricsService(a.Config, a.Paths, deps, a.Logger)
	restored, err := a.MetricsService.Hydrate(ctx)
	if err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "Summary hydrated", slog.Int("record_count", restored))

	health.Records = a.MetricsService.RecordCount
	a.HealthService = services.NewHealthService(health, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that does not wrap the ResponseWriter, so the
	// WebSocket upgrade keeps its Hijacker.
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Handle(config.WebSocketEndpoint, ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))
	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))

	r.Group(func(r chi.Router) {
		r.Use(custommw.HTTPMetrics(a.Metrics))
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.errorHandler))
		r.Use(custommw.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(custommw.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(custommw.Timeout(a.Config.Server.RequestTimeout))
		}

		r.Route(config.APIBasePath, func(r chi.Router) {
			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)

			recordsHandler := handlers.NewRecordsHandler(a.MetricsService, a.Config.Processing.MaxUploadSize, a.Logger, a.errorHandler)
			r.Mount("/", recordsHandler.Routes())
		})
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start binds the listener and serves in the background. Serve errors are
// reported by Wait.
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.Int("record_count", a.MetricsService.RecordCount()),
		slog.Bool("storage", a.Store != nil),
		slog.Bool("influxdb", a.Points != nil))
	return nil
}

// Addr returns the bound listen address once started.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Wait blocks until ctx is done or the server fails.
func (a *Application) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-a.serveErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// Stop shuts the server down and releases every resource.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if a.listener != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	a.closeResources(shutdownCtx)
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return shutdownErr
}

func (a *Application) closeResources(ctx context.Context) {
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.Points != nil {
		if err := a.Points.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing InfluxDB client", slog.String("error", err.Error()))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing record store", slog.String("error", err.Error()))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	waitErr := a.Wait(ctx)
	if waitErr == nil {
		a.Logger.InfoContext(ctx, "Received shutdown signal")
	}

	if err := a.Stop(context.Background()); err != nil {
		return err
	}
	_ = infrastructure.CloseLogFile()
	return waitErr
}
