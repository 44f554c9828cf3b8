package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apierrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/exporter"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/files"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/ingest"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/merge"
	customMiddleware "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/middleware"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/status"
	handlers "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/transport/http"
	ws "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/websocket"
)

var (
	// Version and BuildTime are overridden at link time.
	Version   = config.AppVersion
	BuildTime = "unknown"
)

// runtimeSampleInterval is how often runtime gauges are refreshed.
const runtimeSampleInterval = 15 * time.Second

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Services      *ServiceContainer
	WebSocketHub  *ws.Hub
	Watcher       *files.Watcher
	Runtime       *infrastructure.RuntimeMetrics

	errorHandler *apierrors.ErrorHandler
}

// ServiceContainer holds the archive components shared by the HTTP server
// and the CLI.
type ServiceContainer struct {
	Metrics    *infrastructure.ReconMetrics
	Snapshots  *ingest.Cache
	Registry   *ingest.Registry
	Engine     *status.Engine
	Merger     *merge.Merger
	Files      *files.Manager
	Exporter   *exporter.CSVWriter
	Validator  *customMiddleware.ValidationMiddleware
	Report     *services.ReportService
	Extraction *services.ExtractionService
	Health     *services.HealthService
}

// NewServiceContainer wires loader, cache, registries, status engine, merger
// and the services on top of them. providers may be nil.
func NewServiceContainer(cfg *config.Config, paths *config.Paths, logger *slog.Logger, providers *infrastructure.OTelProviders) (*ServiceContainer, error) {
	var metrics *infrastructure.ReconMetrics
	if providers != nil && providers.Meter != nil {
		m, err := infrastructure.CreateReconMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive metrics: %w", err)
		}
		metrics = m
	}

	loader := ingest.NewLoader(paths.ExtractionsDir,
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithHeaderScan(cfg.Ingest.HeaderScan),
		ingest.WithLogger(logger),
		ingest.WithMetrics(metrics),
	)

	c := &ServiceContainer{
		Metrics:   metrics,
		Snapshots: ingest.NewCache(loader),
		Registry:  ingest.NewRegistry(paths.StudentDataFile, paths.CertifiedFile, logger, metrics),
		Engine:    status.NewEngine(cfg.Courses, logger, metrics),
		Merger: merge.New(
			merge.WithLogger(logger),
			merge.WithMetrics(metrics),
			merge.WithHoursSkipRows(cfg.Ingest.HoursSkipRows),
		),
		Files:    files.NewManager(paths),
		Exporter: exporter.NewCSVWriter(paths, logger),
	}

	errorHandler := apierrors.NewErrorHandler(logger, false)
	c.Validator = customMiddleware.NewValidationMiddleware(logger, errorHandler)
	c.Report = services.NewReportService(c.Snapshots, c.Registry, c.Exporter, c.Engine, cfg.Courses, logger)
	c.Extraction = services.NewExtractionService(c.Merger, c.Validator, logger)
	return c, nil
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", Version))

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	container, err := NewServiceContainer(a.Config, a.Paths, a.Logger, a.OTelProviders)
	if err != nil {
		return err
	}
	a.Services = container

	var wsMetrics *ws.Metrics
	if a.OTelProviders.Meter != nil {
		if wsMetrics, err = ws.NewMetrics(a.OTelProviders.Meter); err != nil {
			return fmt.Errorf("failed to create websocket metrics: %w", err)
		}
		if a.Runtime, err = infrastructure.NewRuntimeMetrics(a.OTelProviders.Meter, runtimeSampleInterval); err != nil {
			return fmt.Errorf("failed to create runtime metrics: %w", err)
		}
	}

	a.WebSocketHub = ws.NewHub(a.Logger, wsMetrics)
	container.Snapshots.Subscribe(a.WebSocketHub.SnapshotSubscriber())
	container.Health = services.NewHealthService(Version, BuildTime, a.Paths.ExtractionsDir,
		container.Snapshots, a.WebSocketHub, a.Logger)

	if a.Config.Ingest.Watch {
		w, err := files.NewWatcher(a.Paths.ExtractionsDir, a.Config.Ingest.WatchDebounce, a.onExtractionsChanged, a.Logger)
		if err != nil {
			// Serving still works; the cache revalidates on every request.
			infrastructure.WithError(a.Logger, err).Warn("File watcher unavailable")
		} else {
			a.Watcher = w
		}
	}
	return nil
}

// onExtractionsChanged reloads the snapshot so the next request and the
// websocket clients see the new files without waiting for a lookup.
func (a *Application) onExtractionsChanged(ctx context.Context, changed []string) {
	a.Logger.InfoContext(ctx, "Extraction files changed", slog.Int("files", len(changed)))
	snap, err := a.Services.Snapshots.Refresh(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Snapshot reload failed", slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Snapshot reloaded",
		slog.Time("version", snap.Version),
		slog.Int("records", len(snap.Records)),
		slog.Int("skipped", len(snap.Skipped)))
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// The websocket upgrade needs the raw ResponseWriter, so it only gets
	// the middleware that leaves the writer alone.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Handle(config.WebSocketEndpoint, ws.NewHandler(a.WebSocketHub, ws.HandlerOptions{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		PingPeriod:      a.Config.WebSocket.PingPeriod,
		PongWait:        a.Config.WebSocket.PongWait,
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
	}, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID, RealIP, OTel, Logger, then panic recovery
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Logger)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.errorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			ExposedHeaders: []string{"Content-Disposition", "X-Request-ID", "X-Row-Count"},
			Logger:         a.Logger,
		}))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	report := handlers.NewReportHandler(a.Services.Report, a.Logger, a.errorHandler)
	extraction := handlers.NewExtractionHandler(a.Services.Extraction, a.Logger, a.errorHandler)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)

		r.Route("/extractions", func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(a.Config.Server.MaxUploadBytes, a.Logger))
			r.Use(customMiddleware.ContentTypeValidator("multipart/form-data"))
			r.Mount("/", extraction.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout))
			r.Mount("/", report.Routes())
		})
	})
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

// Start starts the background workers and the HTTP server. It does not
// block; a server failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("extractions_dir", a.Paths.ExtractionsDir))

	a.WebSocketHub.Start()

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.WarnContext(ctx, "File watcher failed to start", slog.String("error", err.Error()))
		}
	}
	if a.Runtime != nil {
		go a.Runtime.Start(ctx)
	}

	// Warm the snapshot so the first request does not pay for the load.
	go func() {
		snap, err := a.Services.Snapshots.Get(ctx)
		if err != nil {
			a.Logger.WarnContext(ctx, "Initial snapshot load failed", slog.String("error", err.Error()))
			return
		}
		a.Logger.InfoContext(ctx, "Snapshot loaded",
			slog.Int("records", len(snap.Records)),
			slog.Int("files", len(snap.Files)),
			slog.Int("skipped", len(snap.Skipped)))
	}()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.Runtime != nil {
		a.Runtime.Stop()
	}
	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")
	return a.Stop(context.Background())
}
