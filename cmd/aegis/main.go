package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aegis-auth/aegis/internal/app"
	"github.com/aegis-auth/aegis/internal/auth"
	"github.com/aegis-auth/aegis/internal/observability"
	"github.com/aegis-auth/aegis/internal/platform/cache"
	"github.com/aegis-auth/aegis/internal/platform/db"
	"github.com/aegis-auth/aegis/internal/rbac"
	"github.com/aegis-auth/aegis/internal/resources"
	"github.com/aegis-auth/aegis/internal/shared"
	"github.com/aegis-auth/aegis/jobs"
	"github.com/aegis-auth/aegis/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokenEngine(cfg.JWTSecret, cfg.JWTTokenLifetime)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens, cfg.BcryptCost)
	limiter := auth.NewLoginLimiter(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow)
	authHandler := auth.NewHandler(logger, authService, limiter)
	gate := auth.NewGate(logger, authService)

	auditLogger := shared.NewAuditLogger(pool)
	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo, auditLogger, logger)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	adminHandler := rbac.NewHandler(logger, rbacService)

	resourcesHandler := resources.NewHandler(resources.NewStore(), rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Gate:             gate,
		AuthHandler:      authHandler,
		AdminHandler:     adminHandler,
		ResourcesHandler: resourcesHandler,
		RBACMiddleware:   rbacMiddleware,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
