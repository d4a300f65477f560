// Package main is the entry point for the clinicstock API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clinicstock/internal/config"
	"clinicstock/internal/domain/alerts"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/domain/catalogs/product"
	"clinicstock/internal/domain/catalogs/unit"
	"clinicstock/internal/domain/ledger"
	"clinicstock/internal/domain/movement"
	"clinicstock/internal/domain/pools"
	"clinicstock/internal/domain/reports"
	"clinicstock/internal/domain/requests/correction"
	"clinicstock/internal/domain/requests/purchase"
	"clinicstock/internal/domain/requests/withdrawal"
	"clinicstock/internal/infrastructure/cache"
	v1 "clinicstock/internal/infrastructure/http/v1"
	"clinicstock/internal/infrastructure/storage/postgres"
	"clinicstock/internal/infrastructure/storage/postgres/catalog_repo"
	"clinicstock/internal/infrastructure/storage/postgres/request_repo"
	"clinicstock/internal/infrastructure/storage/postgres/stock_repo"
	"clinicstock/pkg/logger"
	"clinicstock/pkg/numerator"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrationsDir := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
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

	log.Infow("starting clinicstock server", "version", version, "env", cfg.App.Env)

	if cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(ctx, cfg.Postgres.DSN, *migrationsDir); err != nil {
			log.Fatalw("migrations failed", "error", err)
		}
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Postgres.DSN)
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	numbers := numerator.New(pool)

	// Repositories
	productRepo := catalog_repo.NewProductRepo(txManager)
	unitRepo := catalog_repo.NewUnitRepo(txManager)
	productUnitRepo := catalog_repo.NewProductUnitRepo(txManager)
	batchRepo := catalog_repo.NewBatchRepo(txManager)
	poolRepo := stock_repo.NewPoolRepo(txManager)
	ledgerRepo := stock_repo.NewLedgerRepo(txManager)
	purchaseRepo := request_repo.NewPurchaseRepo(txManager)
	withdrawalRepo := request_repo.NewWithdrawalRepo(txManager)
	correctionRepo := request_repo.NewCorrectionRepo(txManager)

	approvalAudit, err := postgres.NewApprovalAudit(txManager)
	if err != nil {
		log.Fatalw("failed to create approval audit", "error", err)
	}

	// Catalog services
	productSvc := product.NewService(productRepo, txManager, numbers)
	unitSvc := unit.NewService(unitRepo, productUnitRepo, txManager, numbers)
	batchSvc := batch.NewService(batchRepo, txManager)

	// Conversion cache keeps unit factors hot for the movement path and
	// invalidates on cat_product_units notifications.
	conversions := cache.NewConversionCache(pool.Unwrap())
	if err := conversions.Start(ctx); err != nil {
		log.Fatalw("failed to start conversion cache", "error", err)
	}
	defer conversions.Stop()

	// Stock core
	poolSvc := pools.NewService(poolRepo)
	ledgerSvc := ledger.NewService(ledgerRepo)
	engine := movement.NewEngine(conversions, batchRepo, poolRepo, ledgerSvc, txManager)

	// Request workflows
	purchaseSvc := purchase.NewService(purchaseRepo, engine, approvalAudit, txManager, numbers)
	withdrawalSvc := withdrawal.NewService(withdrawalRepo, engine, approvalAudit, txManager, numbers)
	correctionSvc := correction.NewService(correctionRepo, engine, approvalAudit, txManager, numbers)

	// Reporting
	reportsSvc := reports.NewService(ledgerRepo, poolRepo)
	alertsSvc, err := alerts.NewService(batchRepo, poolSvc, cfg.Alerts.Rule)
	if err != nil {
		log.Fatalw("invalid alert rule", "error", err, "rule", cfg.Alerts.Rule)
	}

	router := v1.NewRouter(v1.Dependencies{
		Pool:        pool,
		Logger:      log,
		Version:     version,
		Products:    productSvc,
		Units:       unitSvc,
		Batches:     batchSvc,
		Pools:       poolSvc,
		Ledger:      ledgerSvc,
		Purchases:   purchaseSvc,
		Withdrawals: withdrawalSvc,
		Corrections: correctionSvc,
		Reports:     reportsSvc,
		Alerts:      alertsSvc,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Infow("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
