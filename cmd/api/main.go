package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/selleropsapp/sellerops-backend/api/routes"
	"github.com/selleropsapp/sellerops-backend/internal/integrations"
	"github.com/selleropsapp/sellerops-backend/internal/marketplace"
	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/internal/salesmetrics"
	"github.com/selleropsapp/sellerops-backend/internal/shipping"
	"github.com/selleropsapp/sellerops-backend/internal/tasks"
	"github.com/selleropsapp/sellerops-backend/internal/users"
	"github.com/selleropsapp/sellerops-backend/pkg/auth/session"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/db"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/migrate"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
	"github.com/selleropsapp/sellerops-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	meliClient, err := meli.NewClient(cfg.MercadoLivre)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado livre client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	credentialsRepo := integrations.NewRepository(dbClient.DB())
	metricsRepo := salesmetrics.NewRepository(dbClient.DB())

	userService, err := users.NewService(users.ServiceParams{
		Logger:   logg,
		Users:    users.NewRepository(dbClient.DB()),
		Sessions: sessionManager,
		JWT:      cfg.JWT,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
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

	shippingService, err := shipping.NewService(shipping.ServiceParams{
		Logger:  logg,
		Orders:  ordersRepo,
		DB:      dbClient,
		Outbox:  outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics: metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	integrationService, err := integrations.NewService(integrations.ServiceParams{
		Logger:      logg,
		Credentials: credentialsRepo,
		OAuth:       meliClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create integrations service", err)
		os.Exit(1)
	}

	marketplaceService, err := marketplace.NewService(marketplace.ServiceParams{
		Logger:      logg,
		Tokens:      integrationService,
		Credentials: credentialsRepo,
		Marketplace: meliClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace service", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Metrics.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid metrics timezone", err)
		os.Exit(1)
	}

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		sessionManager,
		userService,
		taskService,
		shippingService,
		integrationService,
		marketplaceService,
		ordersRepo,
		metricsRepo,
		location,
	)

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"port":        cfg.App.Port,
	})

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during shutdown", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api shutting down gracefully")
}
