package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magisurprise/backend/api/controllers"
	ordercontrollers "github.com/magisurprise/backend/api/controllers/orders"
	"github.com/magisurprise/backend/api/middleware"
	"github.com/magisurprise/backend/internal/catalogcache"
	"github.com/magisurprise/backend/internal/negocios"
	"github.com/magisurprise/backend/internal/orders"
	product "github.com/magisurprise/backend/internal/products"
	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
	pkgredis "github.com/magisurprise/backend/pkg/redis"
)

// Store is the redis surface the HTTP layer needs.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

type catalogReader interface {
	Snapshot(ctx context.Context, c catalogcache.Collection) ([]catalogcache.Entry, error)
}

type deadLetterLister interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
}

// Dependencies are the services the HTTP surface dispatches to.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       Store
	Catalog     catalogReader
	Negocios    negocios.Service
	Products    product.Service
	Orders      orders.Service
	DeadLetters deadLetterLister
	// Gatherer backs /metrics; defaults to the global registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// idempotency runs per route so chi has resolved the full pattern.
	idempotency := middleware.Idempotency(deps.Redis, logg)
	orderLimit := middleware.OrderRateLimit(
		middleware.NewRateLimitPolicy("orders", cfg.Orders.RateLimitWindow, cfg.Orders.RateLimitPerIP, cfg.Orders.RateLimitPerPhone),
		deps.Redis,
		logg,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/catalog/{collection}", controllers.PublicCatalog(deps.Catalog, logg))
		r.Get("/negocios/{slug}", controllers.PublicNegocio(deps.Negocios, logg))
		r.With(orderLimit, idempotency).Post("/orders", ordercontrollers.Create(deps.Orders, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleNegocio, enums.UserRoleAdmin))

		r.Route("/negocios/{negocioId}", func(r chi.Router) {
			r.Get("/", controllers.GetNegocio(deps.Negocios, logg))
			r.Put("/", controllers.UpdateNegocio(deps.Negocios, logg))
			r.Get("/products", controllers.ListProducts(deps.Products, logg))
			r.With(idempotency).Post("/products", controllers.CreateProduct(deps.Products, logg))
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
		})
		r.Route("/products/{productId}", func(r chi.Router) {
			r.Patch("/", controllers.UpdateProduct(deps.Products, logg))
			r.Delete("/", controllers.DeleteProduct(deps.Products, logg))
		})
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
			r.Get("/history", ordercontrollers.History(deps.Orders, logg))
			r.With(idempotency).Post("/status", ordercontrollers.ChangeStatus(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Get("/notifications/dead-letters", controllers.AdminDeadLetters(deps.DeadLetters, logg))
	})

	return r
}
