package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbwebsolutions/datasender/api/controllers"
	"github.com/kbwebsolutions/datasender/api/routes"
	"github.com/kbwebsolutions/datasender/internal/crm"
	"github.com/kbwebsolutions/datasender/internal/grades"
	"github.com/kbwebsolutions/datasender/internal/lms"
	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/db"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
	"github.com/kbwebsolutions/datasender/pkg/queue"
	"github.com/kbwebsolutions/datasender/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	var (
		redisPinger controllers.Pinger
		dedupeGuard controllers.DedupeGuard
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		guard, err := redis.NewDedupeGuard(redisClient, cfg.Redis.DedupeTTL)
		if err != nil {
			logg.Error(ctx, "failed to create dedupe guard", err)
			os.Exit(1)
		}
		redisPinger = redisClient
		dedupeGuard = guard
	}

	lmsRepo := lms.NewRepository(dbClient.DB())
	resolver, err := grades.NewResolver(lmsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create grade resolver", err)
		os.Exit(1)
	}

	crmClient, err := crm.NewClient(cfg.CRM, logg)
	if err != nil {
		logg.Error(ctx, "failed to create crm client", err)
		os.Exit(1)
	}
	router, err := syncsvc.NewRouter(cfg.CRM.BaseURL, cfg.CRM.APIVersion, crmClient)
	if err != nil {
		logg.Error(ctx, "failed to create dispatch router", err)
		os.Exit(1)
	}

	queueRepo := queue.NewRepository(dbClient.DB())
	queueSvc, err := queue.NewService(queueRepo, logg, cfg.Queue.Adapter)
	if err != nil {
		logg.Error(ctx, "failed to create queue service", err)
		os.Exit(1)
	}

	mapper, err := syncsvc.NewMapper(lmsRepo, resolver, cfg.LMS.WWWRoot)
	if err != nil {
		logg.Error(ctx, "failed to create event mapper", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	inline := cfg.Queue.Mode == config.QueueModeInline && !cfg.App.IsTest()
	syncService, err := syncsvc.NewService(mapper, queueSvc, queueRepo, router, pipelineMetrics, logg, inline)
	if err != nil {
		logg.Error(ctx, "failed to create sync service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"queue_mode": cfg.Queue.Mode,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisPinger, syncService, dedupeGuard, registry),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "api server shutdown failed", err)
		}
		logg.Info(startCtx, "api server stopped")
	}
}
