package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/selleropsapp/sellerops-backend/internal/cron"
	"github.com/selleropsapp/sellerops-backend/internal/integrations"
	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/internal/ordersync"
	"github.com/selleropsapp/sellerops-backend/internal/salesmetrics"
	"github.com/selleropsapp/sellerops-backend/internal/tasks"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/db"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/migrate"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
	"github.com/selleropsapp/sellerops-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	meliClient, err := meli.NewClient(cfg.MercadoLivre)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado livre client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	tokenService, err := integrations.NewService(integrations.ServiceParams{
		Logger:      logg,
		Credentials: integrations.NewRepository(dbClient.DB()),
		OAuth:       meliClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create integrations service", err)
		os.Exit(1)
	}

	syncEngine, err := ordersync.NewEngine(ordersync.EngineParams{
		Logger:       logg,
		Tokens:       tokenService,
		Marketplace:  meliClient,
		DB:           dbClient,
		Orders:       ordersRepo,
		Outbox:       outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:      syncMetrics,
		Window:       cfg.Sync.Window,
		PageLimit:    cfg.Sync.PageLimit,
		FetchWorkers: cfg.Sync.FetchWorkers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync engine", err)
		os.Exit(1)
	}

	taskService, err := tasks.NewService(tasks.ServiceParams{
		Logger: logg,
		Tasks:  tasks.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create task service", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Metrics.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid metrics timezone", err)
		os.Exit(1)
	}
	metricsRepo := salesmetrics.NewRepository(dbClient.DB())
	rollupService, err := salesmetrics.NewService(salesmetrics.ServiceParams{
		Logger:   logg,
		Orders:   ordersRepo,
		Metrics:  metricsRepo,
		Location: location,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create metrics rollup service", err)
		os.Exit(1)
	}

	orderSyncJob, err := cron.NewOrderSyncJob(syncEngine, cfg.Sync.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create order sync job", err)
		os.Exit(1)
	}
	taskOverdueJob, err := cron.NewTaskOverdueJob(taskService, time.Hour)
	if err != nil {
		logg.Error(context.Background(), "failed to create task overdue job", err)
		os.Exit(1)
	}
	dailyMetricsJob, err := cron.NewDailyMetricsJob(rollupService, metricsRepo, location, cfg.Metrics.Hour)
	if err != nil {
		logg.Error(context.Background(), "failed to create daily metrics job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(orderSyncJob, taskOverdueJob, dailyMetricsJob),
		Locks:    redisClient,
		Env:      cfg.App.Env,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
