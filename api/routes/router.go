package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courtside-app/courtside-backend/api/controllers"
	webhookcontrollers "github.com/courtside-app/courtside-backend/api/controllers/webhooks"
	"github.com/courtside-app/courtside-backend/api/middleware"
	"github.com/courtside-app/courtside-backend/internal/bookings"
	"github.com/courtside-app/courtside-backend/internal/notifications"
	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/internal/reconcile"
	"github.com/courtside-app/courtside-backend/internal/refunds"
	"github.com/courtside-app/courtside-backend/internal/rentals"
	razorpaywebhook "github.com/courtside-app/courtside-backend/internal/webhooks/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/db"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/redis"
)

// Deps holds everything the HTTP surface needs. The router wires but never
// constructs services.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Bookings bookings.Service
	Rentals  rentals.Service
	Orders   orders.Service
	Payments payments.Service

	Reconcile     reconcile.Service
	Refunds       refunds.Service
	Notifications notifications.Service
	Webhooks      razorpaywebhook.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(deps.Webhooks, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/bookings", func(r chi.Router) {
			r.Post("/", controllers.CreateBooking(deps.Bookings, logg))
			r.Get("/", controllers.ListBookings(deps.Bookings, logg))
			r.Get("/{bookingId}", controllers.GetBooking(deps.Bookings, logg))
		})

		r.Route("/v1/rentals", func(r chi.Router) {
			r.Post("/", controllers.CreateRentalOrder(deps.Rentals, logg))
			r.Get("/", controllers.ListRentalOrders(deps.Rentals, logg))
			r.Get("/{rentalId}", controllers.GetRentalOrder(deps.Rentals, logg))
		})

		r.Route("/v1/orders/{kind}/{orderId}", func(r chi.Router) {
			r.Post("/cancel", controllers.TransitionOrder(deps.Orders, enums.OrderStatusCancelled, logg))
			r.Post("/complete", controllers.TransitionOrder(deps.Orders, enums.OrderStatusCompleted, logg))
			r.Delete("/", controllers.DeleteOrder(deps.Orders, logg))
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Post("/checkout", controllers.CreateCheckout(deps.Payments, logg))
			r.Post("/verify", controllers.VerifyPayment(deps.Reconcile, logg))
			r.Get("/{paymentId}", controllers.GetPayment(deps.Payments, logg))
		})

		r.Post("/v1/refunds", controllers.CreateRefund(deps.Refunds, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
