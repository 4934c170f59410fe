package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/courtside-app/courtside-backend/api/routes"
	"github.com/courtside-app/courtside-backend/internal/bookings"
	"github.com/courtside-app/courtside-backend/internal/catalog"
	"github.com/courtside-app/courtside-backend/internal/inventory"
	"github.com/courtside-app/courtside-backend/internal/notifications"
	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/internal/reconcile"
	"github.com/courtside-app/courtside-backend/internal/refunds"
	"github.com/courtside-app/courtside-backend/internal/rentals"
	razorpaywebhook "github.com/courtside-app/courtside-backend/internal/webhooks/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/db"
	"github.com/courtside-app/courtside-backend/pkg/email"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/metrics"
	"github.com/courtside-app/courtside-backend/pkg/migrate"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/redis"
)

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	rzpClient, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap razorpay", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	catalogRepo := catalog.NewRepository(gormDB)
	inventorySvc := inventory.NewService()

	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, inventorySvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	bookingsSvc, err := bookings.NewService(bookings.NewRepository(gormDB), catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}

	rentalsSvc, err := rentals.NewService(rentals.NewRepository(gormDB), catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create rentals service", err)
		os.Exit(1)
	}

	paymentsRepo := payments.NewRepository(gormDB)
	paymentsSvc, err := payments.NewService(paymentsRepo, ordersRepo, rzpClient, cfg.Razorpay.KeyID, cfg.Orders.Currency)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	recMetrics := metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer)
	reconcileSvc, err := reconcile.NewService(paymentsRepo, ordersSvc, dbClient, outboxSvc, rzpClient, recMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(paymentsRepo, ordersSvc, ordersRepo, dbClient, outboxSvc, rzpClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	webhookSvc, err := razorpaywebhook.NewService(
		reconcileSvc,
		razorpaywebhook.NewGuard(redisClient),
		razorpaywebhook.NewRepository(gormDB),
		cfg.Razorpay.WebhookSecret,
		recMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gormDB), email.NewSender(cfg.Sendgrid, logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Bookings:      bookingsSvc,
			Rentals:       rentalsSvc,
			Orders:        ordersSvc,
			Payments:      paymentsSvc,
			Reconcile:     reconcileSvc,
			Refunds:       refundsSvc,
			Notifications: notificationsSvc,
			Webhooks:      webhookSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
