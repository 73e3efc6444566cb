package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/selleropsapp/sellerops-backend/internal/notifier"
	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/bling"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/db"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/migrate"
	"github.com/selleropsapp/sellerops-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notifier-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "notifier-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notifier-worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	blingClient := bling.NewClient(cfg.Bling)
	if !blingClient.Configured() {
		logg.Warn(context.Background(), "bling credentials missing; status pushes will be skipped")
	}

	consumer, err := notifier.NewConsumer(notifier.ConsumerParams{
		Logger:  logg,
		Orders:  orders.NewRepository(dbClient.DB()),
		Bling:   blingClient,
		Metrics: metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier consumer", err)
		os.Exit(1)
	}

	worker, err := notifier.NewWorker(pubsubClient.OrderEventsSubscription(), consumer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting notifier worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notifier worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notifier worker shutting down gracefully")
}
