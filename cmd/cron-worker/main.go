package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/skyserve/skyserve-backend/internal/catalog"
	"github.com/skyserve/skyserve-backend/internal/cron"
	"github.com/skyserve/skyserve-backend/internal/fleet"
	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/internal/payments"
	"github.com/skyserve/skyserve-backend/internal/scheduler"
	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/db"
	"github.com/skyserve/skyserve-backend/pkg/gateway"
	"github.com/skyserve/skyserve-backend/pkg/logger"
	"github.com/skyserve/skyserve-backend/pkg/metrics"
	"github.com/skyserve/skyserve-backend/pkg/migrate"
	"github.com/skyserve/skyserve-backend/pkg/outbox"
	"github.com/skyserve/skyserve-backend/pkg/redis"
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
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	gatewayClient, err := gateway.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	handoverQueue, err := scheduler.NewQueue(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create handover queue", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	fleetRepo := fleet.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())

	paymentsService, err := payments.NewService(paymentsRepo, ordersRepo, gatewayClient, dbClient, outboxService, cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	fleetService, err := fleet.NewService(fleetRepo, ordersRepo, catalogRepo, dbClient, outboxService, handoverQueue, cfg.Dispatch, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fleet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, fleetService, paymentsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	repairJob, err := cron.NewHandoverRepairJob(cron.HandoverRepairJobParams{
		Logger:  logg,
		Reader:  ordersRepo,
		Orders:  ordersService,
		Metrics: dispatchMetrics,
		Cfg:     cfg.Dispatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create handover repair job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	cronService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(repairJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Dispatch.RepairSweepEvery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	runner, err := scheduler.NewRunner(scheduler.RunnerParams{
		Queue:   handoverQueue,
		Orders:  ordersService,
		Metrics: dispatchMetrics,
		Logger:  logg,
		Cfg:     cfg.Dispatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create handover runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return cronService.Run(groupCtx)
	})
	group.Go(func() error {
		return runner.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "shutting down gracefully")
}
