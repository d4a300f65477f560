// Package main provides a CLI tool for seeding the database with demo
// catalog data: units, products, unit bindings and batches.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/config"
	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/domain/catalogs/product"
	"clinicstock/internal/domain/catalogs/unit"
	"clinicstock/internal/infrastructure/storage/postgres"
	"clinicstock/internal/infrastructure/storage/postgres/catalog_repo"
	"clinicstock/pkg/logger"
	"clinicstock/pkg/numerator"
)

func main() {
	cfg, err := config.Load(os.Getenv("CLINIC_CONFIG"))
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithActor(ctx, &appctx.ActorContext{ActorID: "seed", Name: "Seed CLI"})

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	numbers := numerator.New(pool)

	productSvc := product.NewService(catalog_repo.NewProductRepo(txManager), txManager, numbers)
	unitSvc := unit.NewService(catalog_repo.NewUnitRepo(txManager), catalog_repo.NewProductUnitRepo(txManager), txManager, numbers)
	batchSvc := batch.NewService(catalog_repo.NewBatchRepo(txManager), txManager)

	if err := seed(ctx, log, productSvc, unitSvc, batchSvc); err != nil {
		log.Fatalw("seed failed", "error", err)
	}
	log.Info("seed complete")
}

func seed(ctx context.Context, log *logger.Logger, products *product.Service, units *unit.Service, batches *batch.Service) error {
	ampoule := unit.NewUnit("UNIT-AMP", "Ampoule", "amp")
	milliliter := unit.NewUnit("UNIT-ML", "Milliliter", "ml")
	box := unit.NewUnit("UNIT-BOX", "Box", "box")
	piece := unit.NewUnit("UNIT-PCS", "Piece", "pcs")

	for _, u := range []*unit.Unit{ampoule, milliliter, box, piece} {
		if err := units.Create(ctx, u); err != nil {
			return fmt.Errorf("create unit %s: %w", u.Symbol, err)
		}
		log.Infow("unit created", "code", u.Code, "symbol", u.Symbol)
	}

	lidocaine := product.NewProduct("", "Lidocaine 2% 2ml", product.TypeMedication)
	lidocaine.RequiresColdChain = false
	if err := products.Create(ctx, lidocaine); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	gloves := product.NewProduct("", "Nitrile gloves M", product.TypeConsumable)
	if err := products.Create(ctx, gloves); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	// Lidocaine is stocked in ampoules; a box holds 10.
	lidoBase := unit.NewProductUnit(lidocaine.ID, ampoule.ID, decimal.NewFromInt(1))
	if err := units.AddProductUnit(ctx, lidoBase); err != nil {
		return fmt.Errorf("bind base unit: %w", err)
	}
	lidoBox := unit.NewProductUnit(lidocaine.ID, box.ID, decimal.NewFromInt(10))
	if err := units.AddProductUnit(ctx, lidoBox); err != nil {
		return fmt.Errorf("bind box unit: %w", err)
	}

	// Gloves are counted in pieces; a box holds 100.
	glovesBase := unit.NewProductUnit(gloves.ID, piece.ID, decimal.NewFromInt(1))
	if err := units.AddProductUnit(ctx, glovesBase); err != nil {
		return fmt.Errorf("bind base unit: %w", err)
	}
	glovesBox := unit.NewProductUnit(gloves.ID, box.ID, decimal.NewFromInt(100))
	if err := units.AddProductUnit(ctx, glovesBox); err != nil {
		return fmt.Errorf("bind box unit: %w", err)
	}

	expiry := time.Now().UTC().AddDate(1, 0, 0)
	lidoBatch := batch.NewBatch(lidocaine.ID, "LOT-2026-001")
	lidoBatch.ExpiryDate = &expiry
	lidoBatch.WarningQuantity = types.NewQuantityFromFloat64(20)
	if err := batches.Create(ctx, lidoBatch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	glovesBatch := batch.NewBatch(gloves.ID, "LOT-2026-002")
	glovesBatch.WarningQuantity = types.NewQuantityFromFloat64(200)
	if err := batches.Create(ctx, glovesBatch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	log.Infow("catalogs seeded",
		"products", 2,
		"units", 4,
		"batches", 2,
	)
	return nil
}
