package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HammerMeetNail/ecobuddy/internal/assets"
	"github.com/HammerMeetNail/ecobuddy/internal/config"
	"github.com/HammerMeetNail/ecobuddy/internal/database"
	"github.com/HammerMeetNail/ecobuddy/internal/handlers"
	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/middleware"
	"github.com/HammerMeetNail/ecobuddy/internal/services"
	"github.com/HammerMeetNail/ecobuddy/internal/services/ai"
	"github.com/HammerMeetNail/ecobuddy/migrations"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.SetLevel(cfg.Server.LogLevel)
	logging.SetDefaultLevel(cfg.Server.LogLevel)
	logger.Debug("Debug logging enabled", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	logger.Info("Starting EcoBuddy server...")

	checks := map[string]handlers.HealthChecker{}

	// Postgres only stores AI usage metadata; without it reports still work.
	var usage ai.UsageRecorder
	if cfg.Database.Enabled {
		logger.Info("Connecting to PostgreSQL", map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
		})
		db, err := database.NewPostgresDB(cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL")

		if err := migrate(cfg.Database.DSN(), logger); err != nil {
			return err
		}

		usage = ai.NewUsageLog(db.Pool)
		checks["postgres"] = db
	}

	// Without Redis the report rate limiter lets every request through.
	var limiter *middleware.RateLimiter
	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis", map[string]interface{}{
			"addr": cfg.Redis.Addr(),
		})
		redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisDB.Close() }()
		logger.Info("Connected to Redis")

		limiter = middleware.NewReportRateLimiter(redisDB.Client, cfg.RateLimit.ReportsPerHour, cfg.Server.TrustProxyHeaders)
		checks["redis"] = redisDB
	} else {
		limiter = middleware.NewReportRateLimiter(nil, cfg.RateLimit.ReportsPerHour, cfg.Server.TrustProxyHeaders)
	}

	client := ai.NewGeminiClient(cfg.AI, usage)
	logger.Info("Gemini client configured", map[string]interface{}{
		"model":       client.Model(),
		"key_present": cfg.AI.GeminiAPIKey != "",
	})

	reportService := services.NewReportService(services.DefaultFactors(), client)

	manifest := assets.NewManifest(cfg.Server.StaticDir)
	if err := manifest.Load(); err != nil {
		return fmt.Errorf("loading asset manifest: %w", err)
	}

	pageHandler, err := handlers.NewPageHandler(cfg.Server.TemplatesDir, manifest, reportService)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	handler := newHandler(cfg, routeHandlers{
		pages:   pageHandler,
		reports: handlers.NewReportHandler(reportService),
		health:  handlers.NewHealthHandler(checks),
		limiter: limiter,
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// A report waits on one Gemini call (30s client timeout).
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func migrate(dsn string, logger *logging.Logger) error {
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(dsn, migrations.FS)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("Migrations completed", map[string]interface{}{
		"schema_version": version,
		"dirty":          dirty,
	})
	return nil
}

type routeHandlers struct {
	pages   *handlers.PageHandler
	reports *handlers.ReportHandler
	health  *handlers.HealthHandler
	limiter *middleware.RateLimiter
}

func newHandler(cfg *config.Config, h routeHandlers, logger *logging.Logger) http.Handler {
	csrf := middleware.NewCSRFMiddleware(cfg.Server.Secure)
	formCSRF := csrf.OnFailure(h.pages.CSRFFailed)
	bodyLimit := middleware.NewBodyLimit(handlers.MaxReportBodyBytes)

	mux := http.NewServeMux()

	// Health and metrics endpoints (no CSRF, no rate limit)
	mux.HandleFunc("GET /health", h.health.Health)
	mux.HandleFunc("GET /ready", h.health.Ready)
	mux.HandleFunc("GET /live", h.health.Live)
	mux.Handle("GET /metrics", promhttp.Handler())

	// JSON API. Create only accepts application/json, so it needs no CSRF token.
	mux.Handle("POST /api/report", bodyLimit.Apply(h.limiter.Middleware(http.HandlerFunc(h.reports.Create))))
	mux.HandleFunc("GET /api/factors", h.reports.Factors)

	// Web form. The body limit wraps CSRF, which parses the form first.
	mux.Handle("POST /report", bodyLimit.Apply(formCSRF.Protect(h.limiter.Middleware(http.HandlerFunc(h.pages.Report)))))

	fs := http.FileServer(http.Dir(cfg.Server.StaticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fs))

	// Index renders the 404 page for any other path.
	mux.Handle("GET /", csrf.Protect(http.HandlerFunc(h.pages.Index)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = middleware.NewCacheControl().Apply(handler)
	handler = middleware.NewCompress().Apply(handler)
	handler = middleware.NewSecurityHeaders(cfg.Server.Secure).Apply(handler)
	handler = middleware.NewRequestLogger(logger).Apply(handler)

	return handler
}
