// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/postmortem-garden/internal/actions"
	actionspostgres "github.com/bissquit/postmortem-garden/internal/actions/postgres"
	"github.com/bissquit/postmortem-garden/internal/audit"
	auditpostgres "github.com/bissquit/postmortem-garden/internal/audit/postgres"
	"github.com/bissquit/postmortem-garden/internal/automation"
	automationpostgres "github.com/bissquit/postmortem-garden/internal/automation/postgres"
	"github.com/bissquit/postmortem-garden/internal/config"
	"github.com/bissquit/postmortem-garden/internal/digests"
	digestspostgres "github.com/bissquit/postmortem-garden/internal/digests/postgres"
	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
	"github.com/bissquit/postmortem-garden/internal/identity/jwt"
	identitypostgres "github.com/bissquit/postmortem-garden/internal/identity/postgres"
	"github.com/bissquit/postmortem-garden/internal/incidents"
	incidentspostgres "github.com/bissquit/postmortem-garden/internal/incidents/postgres"
	"github.com/bissquit/postmortem-garden/internal/notifications"
	notificationspostgres "github.com/bissquit/postmortem-garden/internal/notifications/postgres"
	"github.com/bissquit/postmortem-garden/internal/orgs"
	orgspostgres "github.com/bissquit/postmortem-garden/internal/orgs/postgres"
	"github.com/bissquit/postmortem-garden/internal/pkg/ctxlog"
	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/bissquit/postmortem-garden/internal/pkg/metrics"
	"github.com/bissquit/postmortem-garden/internal/pkg/postgres"
	"github.com/bissquit/postmortem-garden/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	scheduler     *automation.Scheduler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, scheduler, err := app.setupRouter()
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}
	app.scheduler = scheduler

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers and the automation scheduler.
func (a *App) Run() error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("start automation scheduler: %w", err)
		}
	}

	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop the scheduler first so no job starts mid-shutdown
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Scheduler returns the automation scheduler instance. Used in tests to
// drive jobs manually. Returns nil if automation is disabled.
func (a *App) Scheduler() *automation.Scheduler {
	return a.scheduler
}

func (a *App) setupRouter() (*chi.Mux, *automation.Scheduler, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Postmortem Garden API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	identityRepo := identitypostgres.NewRepository(a.db)
	jwtAuth := jwt.NewAuthenticator(jwt.Config{
		SecretKey:            a.config.JWT.SecretKey,
		AccessTokenDuration:  a.config.JWT.AccessTokenDuration,
		RefreshTokenDuration: a.config.JWT.RefreshTokenDuration,
	}, identityRepo)
	identityService := identity.NewService(identityRepo, jwtAuth)
	identityHandler := identity.NewHandler(identityService, identity.CookieSettings{
		Secure:               a.config.Cookie.Secure,
		Domain:               a.config.Cookie.Domain,
		AccessTokenDuration:  a.config.JWT.AccessTokenDuration,
		RefreshTokenDuration: a.config.JWT.RefreshTokenDuration,
	})

	auditRepo := auditpostgres.NewRepository(a.db)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(auditService)

	orgsRepo := orgspostgres.NewRepository(a.db)
	orgsService := orgs.NewService(orgsRepo, identityService)
	orgsHandler := orgs.NewHandler(orgsService)

	actionsRepo := actionspostgres.NewRepository(a.db)
	actionsService := actions.NewService(actionsRepo, auditService)
	actionsHandler := actions.NewHandler(actionsService, identityService)

	incidentsRepo := incidentspostgres.NewRepository(a.db)
	incidentsService := incidents.NewService(incidentsRepo, actionsRepo, auditService, identityService)
	postmortemRenderer, err := incidents.NewRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("create postmortem renderer: %w", err)
	}
	incidentsHandler := incidents.NewHandler(incidentsService, postmortemRenderer, identityService)

	notificationsRepo := notificationspostgres.NewRepository(a.db)
	notificationsService := notifications.NewService(notificationsRepo)
	notificationsHandler := notifications.NewHandler(notificationsService)

	digestsRepo := digestspostgres.NewRepository(a.db)
	digestsService := digests.NewService(digestsRepo)
	digestsHandler := digests.NewHandler(digestsService)

	automationRepo := automationpostgres.NewRepository(a.db)
	engine := automation.NewEngine(
		orgsService,
		incidentsRepo,
		actionsRepo,
		notificationsService,
		auditService,
		digestsRepo,
		identityService,
		automationRepo,
	)
	automationHandler := automation.NewHandler(engine, a.config.Automation.TriggersPerMinute)

	var scheduler *automation.Scheduler
	if a.config.Automation.Enabled {
		scheduler = automation.NewScheduler(engine, a.config.Automation, a.logger)
	} else {
		a.logger.Warn("automation scheduler is disabled: escalations, reminders and digests will not run")
	}

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		// Shared postmortems are readable without authentication
		incidentsHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)
			notificationsHandler.RegisterRoutes(r)
			orgsHandler.RegisterRoutes(r)
			incidentsHandler.RegisterRoutes(r)
			actionsHandler.RegisterRoutes(r)
			digestsHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				identityHandler.RegisterAdminRoutes(r)
				auditHandler.RegisterAdminRoutes(r)
				automationHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, scheduler, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
