package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/havencrm/havencrm/internal/app"
	"github.com/havencrm/havencrm/internal/auth"
	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/leads"
	"github.com/havencrm/havencrm/internal/notify"
	"github.com/havencrm/havencrm/internal/observability"
	"github.com/havencrm/havencrm/internal/platform/cache"
	"github.com/havencrm/havencrm/internal/platform/db"
	"github.com/havencrm/havencrm/internal/shared"
)

func main() {
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

	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.JWTSecret)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	permRepo := authz.NewRepository(pool)
	permStore := authz.NewCachedStore(permRepo, redisClient, cfg.AuthzCacheTTL)
	resolver := authz.NewResolver(permStore)
	gate := authz.NewGate(resolver)
	guard := authz.Middleware{Gate: gate, Logger: logger, Observer: metrics}

	notifier := notify.NewEnqueuer(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("notifier close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	permService := authz.NewService(permRepo, permStore, notifier, auditLogger, logger)
	permHandler := authz.NewPermissionsHandler(logger, permService, guard)

	leadRepo := leads.NewRepository(pool)
	leadHandler := leads.NewHandler(logger, leadRepo, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMiddleware,
		PermissionsHandler: permHandler,
		LeadsHandler:       leadHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
