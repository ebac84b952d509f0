package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"salespulse/internal/agent"
	"salespulse/internal/config"
	"salespulse/internal/dataset"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
	customMiddleware "salespulse/internal/middleware"
	"salespulse/internal/operations"
	"salespulse/internal/services"
	handlers "salespulse/internal/transport/http"
	ws "salespulse/internal/websocket"
)

// browserReadyAttempts bounds the health polling before the browser opens.
const browserReadyAttempts = 10

// Application is the dependency container for the SalesPulse server. Every
// collaborator is wired once in NewApplication and shut down in Stop.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Hub           *ws.Hub
	JobQueue      *operations.JobQueue
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Logger        *slog.Logger
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dataset  *services.DatasetService
	Analysis *services.AnalysisService
	Chat     *services.ChatService
	Report   *services.ReportService
	Health   *services.HealthService
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var metrics *infrastructure.BusinessMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreateBusinessMetrics(otelProviders.Meter)
		if err != nil {
			logger.Warn("Failed to create business metrics, continuing without",
				slog.String("error", err.Error()))
			metrics = nil
		}
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		Logger:        logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.Hub = hub

	store := dataset.NewStore()

	datasetService := services.NewDatasetServiceWithLogger(a.Config, a.Paths, store, a.Metrics, a.Logger)
	analysisService := services.NewAnalysisServiceWithLogger(store, a.Paths, hub, a.Metrics, a.Logger)

	llm, err := agent.NewClient(a.Config.Ollama)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}
	toolbox := agent.NewToolbox(a.Paths.UploadsDir, a.Paths.ChartsDir)
	executor := agent.NewExecutor(llm, toolbox.Tools(), a.Config.Ollama, a.Logger)
	chatService := services.NewChatServiceWithLogger(store, executor, a.Metrics, a.Logger)
	datasetService.OnDelete(chatService.Forget)

	// The report pipeline pushes progress two ways: step transitions reach
	// WebSocket clients through the sink, and the queue mirrors every job
	// update to the hub once the sink is wired back into it.
	sink := &services.HubSink{Hub: hub}
	runner := services.NewReportRunner(store, a.Paths, sink, a.Metrics, a.Logger)
	queue := operations.NewJobQueue(a.Config.Operations, operations.NewMemoryJobStore(), runner, a.Logger)
	sink.Progress = queue.UpdateProgress
	queue.OnUpdate(func(job *operations.Job) { hub.BroadcastJobUpdate(job) })
	queue.Start(context.Background())
	a.JobQueue = queue

	reportService := services.NewReportServiceWithLogger(queue, store, a.Logger)
	healthService := services.NewHealthServiceWithLogger(a.Config, a.Paths, a.Logger)

	a.Services = &ServiceContainer{
		Dataset:  datasetService,
		Analysis: analysisService,
		Chat:     chatService,
		Report:   reportService,
		Health:   healthService,
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that never wraps the ResponseWriter, safe for the
	// WebSocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket route before the main group so its hijacked connection
	// skips the wrapping middleware.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Charts are plain static files, served outside the API group.
	a.setupStaticRoutes(r)

	r.Group(func(r chi.Router) {
		otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Get("/", a.handleIndex)
		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	reportHandler := handlers.NewReportHandler(a.Services.Report, a.Logger, errorHandler)
	analysisHandler := handlers.NewAnalysisHandler(a.Services.Analysis, a.Logger, errorHandler)
	datasetHandler := handlers.NewDatasetHandler(a.Services.Dataset, analysisHandler, reportHandler,
		a.Config.Upload.MaxBytes, a.Logger, errorHandler)
	chatHandler := handlers.NewChatHandler(a.Services.Chat, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger, errorHandler)

	// Upload and chat additionally get per-client limiting so one
	// misbehaving client cannot exhaust the shared budget.
	var clientLimit *customMiddleware.ClientRateLimiter
	if a.Config.Security.RateLimit.Enabled {
		clientLimit = customMiddleware.NewClientRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		datasetHandler.SetUploadGuard(clientLimit.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			r.Get("/healthz", healthHandler.Liveness)
			r.Get("/readyz", healthHandler.Readiness)

			r.Mount("/datasets", datasetHandler.Routes())
			r.Mount("/reports", reportHandler.Routes())
		})

		// Chat drives the agent loop against the local model, which can
		// take minutes, so it runs under the operations timeout. The strict
		// JSON body checks stay off the multipart upload route.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Operations.Timeout, a.Logger))
			r.Use(customMiddleware.ContentTypeValidator("application/json"))
			r.Use(customMiddleware.NewValidationMiddleware(a.Logger, errorHandler).ValidateRequest)
			if clientLimit != nil {
				r.Use(clientLimit.Handler)
			}
			r.Mount("/chat", chatHandler.Routes())
		})
	})
}

// setupStaticRoutes serves the rendered charts directory
func (a *Application) setupStaticRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/charts", http.FileServer(http.Dir(a.Paths.ChartsDir))))
	})
}

// handleIndex answers the root with a short service descriptor, which is
// also what the browser lands on after startup.
func (a *Application) handleIndex(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"service": config.AppName,
		"version": config.AppVersion,
		"endpoints": []string{
			"/api/datasets",
			"/api/reports",
			"/api/chat",
			"/api/healthz",
			"/api/readyz",
			"/ws",
			"/charts",
			"/metrics",
		},
	})
}

// corsConfig returns the CORS configuration from the security section
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.ListenAddr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server and, when configured, opens the local
// browser once the service answers its own health probe.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", a.Config.ListenAddr()),
		slog.String("version", config.AppVersion),
		slog.String("model", a.Config.Ollama.Model),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("uploads_dir", a.Paths.UploadsDir),
		slog.String("charts_dir", a.Paths.ChartsDir),
		slog.String("reports_dir", a.Paths.ReportsDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.logStartupChecks(ctx)

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("url", a.Config.BaseURL()))

	if a.Config.Server.OpenBrowser {
		go a.openBrowserWhenReady(ctx)
	}

	return nil
}

// logStartupChecks runs the readiness probes once at startup so directory
// and model problems surface in the log immediately instead of on the
// first failing request.
func (a *Application) logStartupChecks(ctx context.Context) {
	status := a.Services.Health.Readiness(ctx)
	if status.Status == services.HealthStatusHealthy {
		a.Logger.InfoContext(ctx, "Startup checks passed")
		return
	}

	for name, check := range status.Checks {
		if check.Status == services.HealthStatusHealthy {
			continue
		}
		a.Logger.WarnContext(ctx, "Startup check not healthy",
			slog.String("check", name),
			slog.String("status", check.Status),
			slog.String("detail", check.Detail))
	}
	if status.Status == services.HealthStatusDegraded {
		a.Logger.WarnContext(ctx, "Chat is unavailable until Ollama is reachable",
			slog.String("base_url", a.Config.Ollama.BaseURL))
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Queue before hub, running jobs still broadcast their final updates.
	if a.JobQueue != nil {
		if err := a.JobQueue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
			a.Logger.ErrorContext(ctx, "Failed to stop job queue gracefully",
				slog.String("error", err.Error()))
		}
	}

	a.Hub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// A fresh context, the run context may already be cancelled.
	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin:     a.allowWebSocketOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the HTTP error response.
		return
	}

	ws.ServeWS(a.Hub, conn, a.Config.WebSocket, a.Logger)
}

// allowWebSocketOrigin accepts requests without an Origin header and
// otherwise requires a configured origin.
func (a *Application) allowWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.Config.Security.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	a.Logger.Warn("WebSocket origin rejected",
		slog.String("origin", origin),
		slog.String("remote_addr", r.RemoteAddr))
	return false
}

// openBrowserWhenReady polls the health endpoint until the server answers,
// then opens the default browser on the service URL.
func (a *Application) openBrowserWhenReady(ctx context.Context) {
	url := a.Config.BaseURL()
	healthURL := url + "/api/healthz"

	for attempt := 0; attempt < browserReadyAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				if err := openBrowser(url); err != nil {
					a.Logger.Warn("Failed to open browser",
						slog.String("error", err.Error()),
						slog.String("url", url))
					fmt.Printf("\n%s is running.\nOpen your browser at  %s\n\n", config.AppName, url)
				}
				return
			}
		}

		time.Sleep(500 * time.Millisecond)
	}

	a.Logger.Warn("Server did not become ready for browser opening",
		slog.String("url", healthURL))
}

// openBrowser opens the default browser at the given URL
func openBrowser(url string) error {
	var lastErr error
	for _, method := range browserOpenMethods(url) {
		cmd := exec.Command(method.cmd, method.args...)
		if err := cmd.Start(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no browser open method for %s", runtime.GOOS)
	}
	return fmt.Errorf("failed to open browser: %w", lastErr)
}

// browserMethod is one way of launching the platform browser
type browserMethod struct {
	cmd  string
	args []string
}

// browserOpenMethods returns platform-specific browser launch commands, in
// preference order
func browserOpenMethods(url string) []browserMethod {
	switch runtime.GOOS {
	case "windows":
		return []browserMethod{
			{cmd: "cmd", args: []string{"/c", "start", "", url}},
			{cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
		}
	case "darwin":
		return []browserMethod{
			{cmd: "open", args: []string{url}},
		}
	default:
		return []browserMethod{
			{cmd: "xdg-open", args: []string{url}},
			{cmd: "sensible-browser", args: []string{url}},
		}
	}
}
