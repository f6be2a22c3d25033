// Package main is the entrypoint for the Linkcut API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/linkcut/linkcut/internal/analytics"
	"github.com/linkcut/linkcut/internal/auth"
	"github.com/linkcut/linkcut/internal/cache"
	"github.com/linkcut/linkcut/internal/config"
	"github.com/linkcut/linkcut/internal/handler"
	"github.com/linkcut/linkcut/internal/metrics"
	"github.com/linkcut/linkcut/internal/middleware"
	"github.com/linkcut/linkcut/internal/quota"
	"github.com/linkcut/linkcut/internal/repository"
	"github.com/linkcut/linkcut/internal/server"
	"github.com/linkcut/linkcut/internal/service"
	"github.com/linkcut/linkcut/internal/shortcode"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load .env in development; the file is absent in deployments.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Apply schema migrations
	if err := repository.Migrate(cfg.DatabaseURL, cfg.MigrationsURL); err != nil {
		logger.Error(
			"failed to apply migrations",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	generator, err := shortcode.New(cfg.CodeAlphabet, cfg.CodeLength)
	if err != nil {
		logger.Error("invalid short code configuration", "error", err)
		os.Exit(1)
	}

	// Initialize services
	recorder := metrics.NewInMemory()
	tokenIssuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	enforcer := quota.New(repo, cacheClient, logger)
	clickRepo := repository.NewClickEventRepository(repo)

	linkService := service.NewLinkService(
		repo,
		cacheClient,
		enforcer,
		generator,
		cfg.BaseURL,
		cfg.RedirectTimeout,
		cfg.CodeMaxRetries,
		recorder,
	)
	authService := service.NewAuthService(repo, tokenIssuer)
	statsService := service.NewStatsService(repo, clickRepo, repo)
	planService := service.NewPlanService(repo)
	adminService := service.NewAdminService(repo, repo)

	// Click event pipeline
	publisher := analytics.NewPublisher(cacheClient.Client(), cfg.ClickStreamMaxLen, logger, recorder)
	worker := analytics.NewWorker(cacheClient.Client(), clickRepo, logger, analytics.NewConsumerID(), recorder)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	metricsHandler := handler.NewMetricsHandler(recorder)
	authHandler := handler.NewAuthHandler(authService, logger)
	linkHandler := handler.NewLinkHandler(linkService, logger)
	redirectHandler := handler.NewRedirectHandler(linkService, publisher, logger)
	statsHandler := handler.NewStatsHandler(statsService, logger)
	planHandler := handler.NewPlanHandler(planService, logger)
	adminHandler := handler.NewAdminHandler(adminService, logger)

	// Setup router
	r := setupRouter(routerDeps{
		base:     h,
		health:   healthHandler,
		metrics:  metricsHandler,
		auth:     authHandler,
		link:     linkHandler,
		redirect: redirectHandler,
		stats:    statsHandler,
		plan:     planHandler,
		admin:    adminHandler,
		tokens:   tokenIssuer,
		cache:    cacheClient,
		cfg:      cfg,
		logger:   logger,
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the click worker; drain it before the server exits.
	workerCtx, stopWorker := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("click worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("click_worker", func(ctx context.Context) error {
		defer stopWorker()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps bundles everything setupRouter needs.
type routerDeps struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	auth     *handler.AuthHandler
	link     *handler.LinkHandler
	redirect *handler.RedirectHandler
	stats    *handler.StatsHandler
	plan     *handler.PlanHandler
	admin    *handler.AdminHandler
	tokens   *auth.TokenIssuer
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	if origins := deps.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: origins}))
	}

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Get("/metrics", deps.metrics.Metrics)

	// Root info endpoint
	r.Get("/", deps.base.Hello)

	// Public account and plan endpoints
	r.Post("/auth/register", deps.auth.Register)
	r.Post("/auth/login", deps.auth.Login)
	r.Get("/plans", deps.plan.List)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger: deps.logger,
		Tokens: deps.tokens,
	}

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.Route("/links", func(r chi.Router) {
			r.Post("/shorten", deps.link.Shorten)
			r.Get("/my-links", deps.link.List)
			r.Get("/{code}", deps.link.Get)
			r.Patch("/{code}", deps.link.Update)
			r.Delete("/{code}", deps.link.Delete)
			r.Get("/{code}/stats", deps.stats.LinkStats)
		})

		r.Get("/stats/dashboard", deps.stats.Dashboard)
		r.Get("/plans/current", deps.plan.Current)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Get("/users", deps.admin.ListUsers)
			r.Post("/users/{id}/plan", deps.admin.AssignPlan)
			r.Get("/links", deps.link.ListAll)
			r.Delete("/links/{code}", deps.link.Delete)
		})
	})

	// Rate limit middleware configuration for the public redirect path
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:          deps.logger,
		Cache:           deps.cache,
		RedirectEnabled: deps.cfg.RateLimitRedirectEnabled,
		RedirectRPS:     deps.cfg.RateLimitRedirectRPS,
		RedirectBurst:   deps.cfg.RateLimitRedirectBurst,
	}

	// Redirect handler with IP-based rate limiting (no auth required)
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/{code}", deps.redirect.Redirect)

	// 404 and 405 handlers
	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
