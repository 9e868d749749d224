package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/karimzem/fulfillment-backend/internal/agents"
	"github.com/karimzem/fulfillment-backend/internal/assignment"
	"github.com/karimzem/fulfillment-backend/internal/cron"
	"github.com/karimzem/fulfillment-backend/internal/notifications"
	"github.com/karimzem/fulfillment-backend/internal/shipping"
	ordersync "github.com/karimzem/fulfillment-backend/internal/sync"
	"github.com/karimzem/fulfillment-backend/internal/syncpos"
	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/db"
	"github.com/karimzem/fulfillment-backend/pkg/ecomanager"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
	"github.com/karimzem/fulfillment-backend/pkg/maystro"
	"github.com/karimzem/fulfillment-backend/pkg/metrics"
	"github.com/karimzem/fulfillment-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	debouncer, err := notifications.NewDebouncer(notifications.DebouncerParams{
		Logger:   logg,
		Repo:     notificationsRepo,
		Debounce: cfg.Assignment.NotifyDebounce,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notifier", err)
		os.Exit(1)
	}
	go debouncer.Run(ctx)

	selector, err := assignment.NewSelector(redisClient, cfg.Assignment.CursorLockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create round-robin selector", err)
		os.Exit(1)
	}

	assignmentSvc, err := assignment.NewService(assignment.ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Orders:   assignment.NewOrderRepository(dbClient.DB()),
		Agents:   agents.NewRepository(dbClient.DB()),
		Selector: selector,
		Notifier: debouncer,
		Metrics:  metrics.NewAssignmentMetrics(registry),
		Config:   cfg.Assignment,
	})
	if err != nil {
		logg.Error(ctx, "failed to create assignment service", err)
		os.Exit(1)
	}

	backup, err := syncpos.NewFileBackup(cfg.Sync.BackupPath)
	if err != nil {
		logg.Error(ctx, "failed to create position backup", err)
		os.Exit(1)
	}
	positionStore, err := syncpos.NewStore(syncpos.StoreParams{
		Logger: logg,
		Cache:  redisClient,
		Backup: backup,
		Repo:   syncpos.NewRepository(dbClient.DB()),
		Config: cfg.Sync,
	})
	if err != nil {
		logg.Error(ctx, "failed to create position store", err)
		os.Exit(1)
	}

	registryJobs := cron.NewRegistry()

	autoAssignJob, err := cron.NewAutoAssignJob(cron.AutoAssignJobParams{
		Logger:     logg,
		Assignment: assignmentSvc,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auto-assign job", err)
		os.Exit(1)
	}
	registryJobs.Register(autoAssignJob)

	if cfg.EcoManager.BaseURL != "" {
		feed, err := ecomanager.NewClient(cfg.EcoManager)
		if err != nil {
			logg.Error(ctx, "failed to create feed client", err)
			os.Exit(1)
		}
		syncSvc, err := ordersync.NewService(ordersync.ServiceParams{
			Logger:    logg,
			DB:        dbClient,
			Repo:      ordersync.NewRepository(dbClient.DB()),
			Feed:      feed,
			Positions: positionStore,
			Config:    cfg.Sync,
		})
		if err != nil {
			logg.Error(ctx, "failed to create sync service", err)
			os.Exit(1)
		}
		syncJob, err := cron.NewSyncJob(cron.SyncJobParams{Logger: logg, Sync: syncSvc})
		if err != nil {
			logg.Error(ctx, "failed to create sync job", err)
			os.Exit(1)
		}
		registryJobs.Register(syncJob)
	} else {
		logg.Warn(ctx, "feed base url not set; sync job disabled")
	}

	if cfg.Maystro.BaseURL != "" {
		courier, err := maystro.NewClient(cfg.Maystro)
		if err != nil {
			logg.Error(ctx, "failed to create courier client", err)
			os.Exit(1)
		}
		shippingSvc, err := shipping.NewService(shipping.ServiceParams{
			Logger:  logg,
			Repo:    shipping.NewRepository(dbClient.DB()),
			Courier: courier,
			Config:  cfg.Sync,
		})
		if err != nil {
			logg.Error(ctx, "failed to create shipping service", err)
			os.Exit(1)
		}
		shippingJob, err := cron.NewShippingJob(cron.ShippingJobParams{Logger: logg, Shipping: shippingSvc})
		if err != nil {
			logg.Error(ctx, "failed to create shipping job", err)
			os.Exit(1)
		}
		registryJobs.Register(shippingJob)
	} else {
		logg.Warn(ctx, "courier base url not set; shipping job disabled")
	}

	auditJob, err := cron.NewPositionAuditJob(cron.PositionAuditJobParams{
		Logger:    logg,
		Positions: positionStore,
		Stores:    cfg.Sync.ActiveStores,
	})
	if err != nil {
		logg.Error(ctx, "failed to create position audit job", err)
		os.Exit(1)
	}
	registryJobs.Register(auditJob)

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	cronSvc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registryJobs,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(registry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "interval", cfg.Cron.Interval.String()), "starting cron worker")
	if err := cronSvc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}
