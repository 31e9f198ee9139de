package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skyserve/skyserve-backend/api/controllers"
	webhookcontrollers "github.com/skyserve/skyserve-backend/api/controllers/webhooks"
	"github.com/skyserve/skyserve-backend/api/middleware"
	"github.com/skyserve/skyserve-backend/internal/catalog"
	checkoutsvc "github.com/skyserve/skyserve-backend/internal/checkout"
	"github.com/skyserve/skyserve-backend/internal/fleet"
	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/internal/payments"
	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/db"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	"github.com/skyserve/skyserve-backend/pkg/logger"
	"github.com/skyserve/skyserve-backend/pkg/redis"
)

const (
	roleCustomer  = string(enums.ActorRoleCustomer)
	roleShopOwner = string(enums.ActorRoleShopOwner)
	roleAdmin     = string(enums.ActorRoleAdmin)
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	fleetService fleet.Service,
	paymentsService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// The gateway posts settlement callbacks without a bearer token; the
	// payload signature is its credential.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayCallback(paymentsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, logg))

		r.Route("/shops", func(r chi.Router) {
			r.Get("/", controllers.ShopList(catalogService, logg))
			r.With(middleware.RequireRole(logg, roleShopOwner)).Post("/", controllers.ShopCreate(catalogService, logg))

			r.Route("/{shopId}", func(r chi.Router) {
				r.Get("/", controllers.ShopDetail(catalogService, logg))
				r.Get("/menu", controllers.MenuList(catalogService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, roleShopOwner))
					r.Patch("/", controllers.ShopUpdate(catalogService, logg))
					r.Post("/menu", controllers.MenuItemCreate(catalogService, logg))
					r.Patch("/menu/{itemId}", controllers.MenuItemUpdate(catalogService, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, roleShopOwner, roleAdmin))
					r.Get("/orders", controllers.ShopOrderList(ordersService, logg))
					r.Get("/fleet", controllers.FleetList(fleetService, logg))
					r.Post("/fleet/reset", controllers.FleetReset(fleetService, logg))
				})
			})
		})

		r.Route("/fleet/{unitId}", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, roleShopOwner, roleAdmin))
			r.Post("/release", controllers.FleetRelease(fleetService, logg))
			r.Patch("/maintenance", controllers.FleetMaintenance(fleetService, logg))
		})

		r.With(middleware.RequireRole(logg, roleCustomer)).Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, roleCustomer)).Get("/", controllers.OrderList(ordersService, logg))

			r.Route("/{orderId}/shop-orders/{shopOrderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(ordersService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, roleShopOwner, roleAdmin))
					r.Patch("/status", controllers.OrderUpdateStatus(ordersService, logg))
					r.Post("/cancel", controllers.OrderCancel(ordersService, logg))
					r.Post("/assign", controllers.FleetAssign(fleetService, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, roleCustomer))
					r.Post("/confirm-delivery", controllers.OrderConfirmDelivery(ordersService, logg))
					r.Post("/payment", controllers.PaymentCreate(paymentsService, logg))
				})
			})
		})

		r.Get("/payments/{paymentId}", controllers.PaymentStatus(paymentsService, logg))
	})

	return r
}
