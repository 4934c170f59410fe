package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/courtside-app/courtside-backend/internal/cron"
	"github.com/courtside-app/courtside-backend/internal/inventory"
	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/internal/reconcile"
	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/db"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/metrics"
	"github.com/courtside-app/courtside-backend/pkg/migrate"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/redis"
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

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, inventory.NewService())
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	reconcileSvc, err := reconcile.NewService(
		payments.NewRepository(gormDB),
		ordersSvc,
		dbClient,
		outboxSvc,
		rzpClient,
		metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	cronRepo := cron.NewRepository(gormDB)
	jobs := []cron.Job{
		cron.NewLifecycleJob(cronRepo, ordersSvc, dbClient, logg),
		cron.NewDraftTTLJob(cronRepo, ordersSvc, dbClient, cfg.Cron, logg),
		cron.NewSweepJob(reconcileSvc, cfg.Cron, logg),
	}

	runner, err := cron.NewRunner(
		jobs,
		cron.NewLock(redisClient, 0),
		cfg.Cron.Interval,
		metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
