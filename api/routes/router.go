package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-fulfillment/api/controllers"
	fulfillmentcontrollers "github.com/angelmondragon/packfinderz-fulfillment/api/controllers/fulfillment"
	taskcontrollers "github.com/angelmondragon/packfinderz-fulfillment/api/controllers/tasks"
	"github.com/angelmondragon/packfinderz-fulfillment/api/middleware"
	"github.com/angelmondragon/packfinderz-fulfillment/internal/fulfillment"
	"github.com/angelmondragon/packfinderz-fulfillment/internal/tasks"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/config"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
	pkgredis "github.com/angelmondragon/packfinderz-fulfillment/pkg/redis"
)

// redisClient is the subset of *redis.Client the router wires into middleware.
type redisClient interface {
	controllers.Pinger
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisClient,
	gatherer prometheus.Gatherer,
	fulfillmentService fulfillment.Service,
	taskService tasks.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	codeAttempts := middleware.CodeAttemptPolicy{
		Limit:  cfg.Fulfillment.CodeAttemptLimit,
		Window: cfg.Fulfillment.CodeAttemptWindow,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.With(middleware.CodeAttemptLimit(codeAttempts, redisClient, logg)).
				Post("/fulfill-by-code", fulfillmentcontrollers.FulfillByCode(fulfillmentService, logg))
			r.Get("/fulfillment", fulfillmentcontrollers.FulfillmentStatus(fulfillmentService, logg))
		})
		r.Post("/order-lines/{lineId}/fulfill", fulfillmentcontrollers.FulfillSingleLine(fulfillmentService, logg))
		r.Get("/tasks", taskcontrollers.ListMine(taskService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders/{orderId}/override", func(r chi.Router) {
			r.Post("/fulfill", fulfillmentcontrollers.OverrideFulfillment(fulfillmentService, logg))
			r.Post("/cancel", fulfillmentcontrollers.OverrideCancellation(fulfillmentService, logg))
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskcontrollers.Assign(taskService, logg))
			r.Post("/{taskId}/reassign", taskcontrollers.Reassign(taskService, logg))
		})
		r.Get("/businesses/{businessId}/tasks", taskcontrollers.ListForBusiness(taskService, logg))
	})

	return r
}
