package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost-io/tradepost-backend/api/controllers"
	"github.com/tradepost-io/tradepost-backend/api/middleware"
	"github.com/tradepost-io/tradepost-backend/internal/checkout"
	"github.com/tradepost-io/tradepost-backend/internal/notifications"
	internalorders "github.com/tradepost-io/tradepost-backend/internal/orders"
	"github.com/tradepost-io/tradepost-backend/pkg/config"
	"github.com/tradepost-io/tradepost-backend/pkg/db"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/redis"
)

const (
	orderWriteLimit  = 30
	orderWriteWindow = time.Minute
)

// NewRouter assembles the HTTP surface. Order creation endpoints sit behind a
// per-account rate limit; everything under /v1 requires account context.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	checkoutService checkout.Service,
	ordersService *internalorders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, dbP, logg))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.AccountContext(logg))

		v1.Route("/orders", func(orders chi.Router) {
			orders.Group(func(writes chi.Router) {
				if redisClient != nil {
					writes.Use(middleware.RateLimit(redisClient, logg, "orders:create", orderWriteLimit, orderWriteWindow))
				}
				writes.Post("/", controllers.CreateOrder(checkoutService, logg))
				writes.Post("/from-quote", controllers.CreateOrderFromQuote(checkoutService, logg))
			})
			orders.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			orders.Patch("/line-items/{lineItemID}/status", controllers.TransitionLineItem(ordersService, logg))
		})

		v1.Route("/notifications", func(n chi.Router) {
			n.Get("/", controllers.ListNotifications(notificationsService, logg))
			n.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
			n.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
