package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cvscan/internal/config"
	apierrors "cvscan/internal/errors"
	"cvscan/internal/files"
	"cvscan/internal/infrastructure"
	customMiddleware "cvscan/internal/middleware"
	"cvscan/internal/services"
	handlers "cvscan/internal/transport/http"
	ws "cvscan/internal/websocket"
)

// BuildTime is set at link time with -ldflags "-X cvscan/internal/app.BuildTime=...".
var BuildTime = "unknown"

// jsonBodyLimit caps JSON request bodies. Uploads have their own limit.
const jsonBodyLimit = 1 << 20

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ServiceMetrics
	Runtime       *infrastructure.RuntimeMetrics

	Store           *files.Store
	Session         *services.Session
	WebSocketHub    *ws.Hub
	DatasetService  *services.DatasetService
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService

	ErrorHandler *apierrors.ErrorHandler
	Validator    *customMiddleware.ValidationMiddleware
}

// NewApplication loads the configuration, initializes the logger and wires
// the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	return New(cfg, paths, logger)
}

// New wires an application from an already loaded configuration. A nil
// logger falls back to slog.Default().
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	ctx := context.Background()
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_time", BuildTime))

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateServiceMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create service metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}
	a.Validator = customMiddleware.NewValidationMiddleware(logger, a.ErrorHandler, jsonBodyLimit)

	if err := a.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	a.Store = files.NewStore(a.Paths, infrastructure.WithComponent(a.Logger, "store"))
	if _, err := a.Store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load stored datasets: %w", err)
	}

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Config.WebSocket, wsMetrics, infrastructure.WithComponent(a.Logger, "websocket"))

	a.Session = services.NewSession()
	a.DatasetService = services.NewDatasetService(a.Store, a.Session, a.WebSocketHub, a.Metrics,
		infrastructure.WithComponent(a.Logger, "datasets"))
	a.AnalysisService = services.NewAnalysisService(
		a.DatasetService,
		a.Config.Analysis,
		a.Paths.ReportsDir,
		a.OTelProviders.Tracer,
		a.Metrics,
		a.WebSocketHub,
		infrastructure.WithComponent(a.Logger, "analysis"),
	)
	a.HealthService = services.NewHealthService(
		config.AppVersion,
		BuildTime,
		a.Paths,
		a.WebSocketHub,
		a.Session,
		a.Logger,
	)

	a.Runtime, err = infrastructure.RegisterRuntimeMetrics(a.OTelProviders.Meter, func() int {
		return len(a.Store.List())
	})
	if err != nil {
		return fmt.Errorf("failed to register runtime metrics: %w", err)
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// The websocket route must not sit behind middleware that wraps the
	// ResponseWriter, or the upgrade cannot hijack the connection.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	upgrader := ws.NewUpgrader(a.Config.WebSocket, a.Config.Security.AllowedOrigins)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.OTelProviders.Tracer, a.Logger)).
		Get("/ws", a.WebSocketHub.ServeWS(upgrader))

	r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)

	r.Group(func(r chi.Router) {
		// Order: OTel → Logger → Recoverer → headers → CORS → rate limit
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(a.Validator.ValidateRequest)

		r.NotFound(a.ErrorHandler.NotFound)
		r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

		// Session, uploads and cheap reads
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout))

			handlers.NewHealthHandler(a.HealthService, a.Logger).RegisterRoutes(r)

			r.Mount("/session", handlers.NewSessionHandler(a.DatasetService, a.Validator, a.Logger, a.ErrorHandler).Routes())
			r.Mount("/datasets", handlers.NewDatasetHandler(a.DatasetService, a.Validator, a.Config.Analysis.MaxUploadBytes, a.Logger, a.ErrorHandler).Routes())

			r.With(customMiddleware.MaxBodySize(jsonBodyLimit)).
				Post("/logs", handlers.NewClientLogHandler(a.Validator, a.Logger, a.ErrorHandler).Handle)
		})

		// Analyses may fit many polynomials; they get the longer budget.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout))
			r.Use(customMiddleware.MaxBodySize(jsonBodyLimit))

			fitHandler := handlers.NewFitHandler(a.AnalysisService, a.Validator, a.Logger, a.ErrorHandler)
			r.Mount("/curves", handlers.NewCurveHandler(a.AnalysisService, a.Validator, a.Logger, a.ErrorHandler).Routes())
			r.Mount("/fits", fitHandler.Routes())
			r.Mount("/reports", fitHandler.ReportRoutes())
		})
	})
}

// getCORSConfig allows the configured origins plus the server's own.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	origins = append(origins, a.Config.Security.AllowedOrigins...)

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", origins))

	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
			"X-Requested-With",
		},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
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

// Start starts the websocket hub and the HTTP server. A listener failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if err := a.Runtime.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error stopping runtime metrics", slog.String("error", err.Error()))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the data directories are writable.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	directories := []struct{ name, dir string }{
		{"Data", a.Paths.DataDir},
		{"Uploads", a.Paths.UploadsDir},
		{"Datasets", a.Paths.DatasetsDir},
		{"Reports", a.Paths.ReportsDir},
		{"Logs", a.Paths.LogsDir},
	}

	var warnings []string
	for _, d := range directories {
		testFile := filepath.Join(d.dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", d.name, d.dir))
			continue
		}
		os.Remove(testFile)
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed",
		slog.Int("datasets", len(a.Store.List())))
	return nil
}
