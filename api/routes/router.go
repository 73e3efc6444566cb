package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/selleropsapp/sellerops-backend/api/controllers"
	"github.com/selleropsapp/sellerops-backend/api/middleware"
	"github.com/selleropsapp/sellerops-backend/internal/integrations"
	"github.com/selleropsapp/sellerops-backend/internal/marketplace"
	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/internal/salesmetrics"
	"github.com/selleropsapp/sellerops-backend/internal/shipping"
	"github.com/selleropsapp/sellerops-backend/internal/tasks"
	"github.com/selleropsapp/sellerops-backend/internal/users"
	"github.com/selleropsapp/sellerops-backend/pkg/auth/session"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/redis"
)

const (
	roleAdmin    = string(enums.UserRoleAdmin)
	roleShipping = string(enums.UserRoleShipping)
	roleMetrics  = string(enums.UserRoleMetrics)
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database controllers.Pinger,
	redisClient *redis.Client,
	sessions session.Checker,
	userService *users.Service,
	taskService *tasks.Service,
	shippingService *shipping.Service,
	integrationService *integrations.Service,
	marketplaceService *marketplace.Service,
	ordersRepo orders.Repository,
	metricsRepo salesmetrics.Repository,
	metricsLocation *time.Location,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Frontend),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The OAuth provider lands the browser here; the route stays public and
	// always answers with a redirect.
	r.Get("/integrations/mercadolivre/callback", controllers.IntegrationCallback(integrationService, cfg.Frontend, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(userService, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(userService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Get("/orders", controllers.OrderList(ordersRepo, logg))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", controllers.TaskList(taskService, logg))
			r.Get("/{taskID}", controllers.TaskGet(taskService, logg))
			r.Post("/{taskID}/complete", controllers.TaskComplete(taskService, logg))
			r.With(middleware.RequireRole(logg, roleAdmin)).Post("/", controllers.TaskCreate(taskService, logg))
			r.With(middleware.RequireRole(logg, roleAdmin)).Post("/{taskID}/verify", controllers.TaskVerify(taskService, logg))
		})

		r.With(middleware.RequireRole(logg, roleShipping, roleAdmin)).
			Post("/shipping/scan", controllers.ShippingScan(shippingService, logg))

		r.With(middleware.RequireRole(logg, roleMetrics, roleAdmin)).
			Get("/metrics/daily", controllers.MetricsDaily(metricsRepo, metricsLocation, logg))

		r.Route("/marketplace", func(r chi.Router) {
			r.Get("/reputation", controllers.MarketplaceReputation(marketplaceService, logg))
			r.Get("/balance", controllers.MarketplaceBalance(marketplaceService, logg))
			r.Get("/shipping-performance", controllers.MarketplaceShippingPerformance(marketplaceService, logg))
		})

		r.With(middleware.RequireRole(logg, roleAdmin)).
			Get("/integrations/mercadolivre/auth-url", controllers.IntegrationAuthURL(integrationService, logg))

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, roleAdmin))
			r.Get("/", controllers.UserList(userService, logg))
			r.Post("/", controllers.UserCreate(userService, logg))
		})
	})

	return r
}
