package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbwebsolutions/datasender/internal/crm"
	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/db"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
	"github.com/kbwebsolutions/datasender/pkg/queue"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "queue-sender"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "queue-sender",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	crmClient, err := crm.NewClient(cfg.CRM, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create crm client", err)
		os.Exit(1)
	}
	router, err := syncsvc.NewRouter(cfg.CRM.BaseURL, cfg.CRM.APIVersion, crmClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch router", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: queue.NewRepository(dbClient.DB()),
		Router:     router,
		Metrics:    metrics.NewPipelineMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create queue sender", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"queue_mode": cfg.Queue.Mode,
	})
	logg.Info(ctx, "starting queue sender")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "queue sender stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "queue sender shutting down gracefully")
}
