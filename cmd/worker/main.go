// Package main is the entry point for the clinicstock background worker.
// It periodically evaluates low-stock alerts and expiring batches so
// operators see problems without polling the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicstock/internal/config"
	"clinicstock/internal/domain/alerts"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/domain/pools"
	"clinicstock/internal/infrastructure/storage/postgres"
	"clinicstock/internal/infrastructure/storage/postgres/catalog_repo"
	"clinicstock/internal/infrastructure/storage/postgres/stock_repo"
	"clinicstock/pkg/logger"
)

const (
	checkInterval = 15 * time.Minute
	expiryHorizon = 30 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load(os.Getenv("CLINIC_CONFIG"))
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting clinicstock worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	batchRepo := catalog_repo.NewBatchRepo(txManager)
	poolRepo := stock_repo.NewPoolRepo(txManager)
	batchSvc := batch.NewService(batchRepo, txManager)
	poolSvc := pools.NewService(poolRepo)

	alertsSvc, err := alerts.NewService(batchRepo, poolSvc, cfg.Alerts.Rule)
	if err != nil {
		log.Fatalw("invalid alert rule", "error", err, "rule", cfg.Alerts.Rule)
	}

	runChecks(ctx, log, alertsSvc, batchSvc)

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			runChecks(ctx, log, alertsSvc, batchSvc)
		}
	}
}

func runChecks(ctx context.Context, log *logger.Logger, alertsSvc *alerts.Service, batchSvc *batch.Service) {
	fired, err := alertsSvc.CheckAll(ctx)
	if err != nil {
		log.Errorw("alert check failed", "error", err)
	} else {
		for _, a := range fired {
			log.Warnw("low stock alert",
				"batchId", a.BatchID,
				"batchNumber", a.BatchNumber,
				"quantity", a.Quantity,
				"warning", a.Warning,
				"expired", a.Expired,
			)
		}
		log.Infow("alert check complete", "fired", len(fired))
	}

	expiring, err := batchSvc.ListExpiring(ctx, expiryHorizon)
	if err != nil {
		log.Errorw("expiry check failed", "error", err)
		return
	}
	for _, b := range expiring {
		log.Warnw("batch expiring soon",
			"batchId", b.ID,
			"batchNumber", b.BatchNumber,
			"expiryDate", b.ExpiryDate,
		)
	}
	log.Infow("expiry check complete", "expiring", len(expiring))
}
