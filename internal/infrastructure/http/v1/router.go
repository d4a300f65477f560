// Package v1 provides the HTTP API surface.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinicstock/internal/domain/alerts"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/domain/catalogs/product"
	"clinicstock/internal/domain/catalogs/unit"
	"clinicstock/internal/domain/ledger"
	"clinicstock/internal/domain/pools"
	"clinicstock/internal/domain/reports"
	"clinicstock/internal/domain/requests/correction"
	"clinicstock/internal/domain/requests/purchase"
	"clinicstock/internal/domain/requests/withdrawal"
	"clinicstock/internal/infrastructure/http/v1/handlers"
	"clinicstock/internal/infrastructure/http/v1/middleware"
	"clinicstock/internal/infrastructure/storage/postgres"
	"clinicstock/pkg/logger"
)

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Pool    *postgres.Pool
	Logger  *logger.Logger
	Version string

	Products *product.Service
	Units    *unit.Service
	Batches  *batch.Service

	Pools  *pools.Service
	Ledger *ledger.Service

	Purchases   *purchase.Service
	Withdrawals *withdrawal.Service
	Corrections *correction.Service

	Reports *reports.Service
	Alerts  *alerts.Service
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Actor())
	r.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(deps.Pool, deps.Version)
	health := r.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	productHandler := handlers.NewProductHandler(deps.Products)
	unitHandler := handlers.NewUnitHandler(deps.Units)
	batchHandler := handlers.NewBatchHandler(deps.Batches)
	stockHandler := handlers.NewStockHandler(deps.Pools, deps.Ledger)
	reportsHandler := handlers.NewReportsHandler(deps.Reports, deps.Alerts)
	purchaseHandler := handlers.NewPurchaseHandler(deps.Purchases)
	withdrawalHandler := handlers.NewWithdrawalHandler(deps.Withdrawals)
	correctionHandler := handlers.NewCorrectionHandler(deps.Corrections)

	api := r.Group("/api/v1")

	// Reads are open to any caller the gateway lets through.
	RegisterCatalogReadRoutes(api.Group("/products"), productHandler)
	RegisterCatalogReadRoutes(api.Group("/units"), unitHandler)
	RegisterCatalogReadRoutes(api.Group("/batches"), batchHandler)
	RegisterRequestReadRoutes(api.Group("/requests/purchases"), purchaseHandler)
	RegisterRequestReadRoutes(api.Group("/requests/withdrawals"), withdrawalHandler)
	RegisterRequestReadRoutes(api.Group("/requests/corrections"), correctionHandler)

	api.GET("/products/barcode/:barcode", productHandler.FindByBarcode)
	api.GET("/products/:id/units", unitHandler.ListProductUnits)
	api.GET("/products/:id/batches", batchHandler.ListByProduct)
	api.GET("/units/symbol/:symbol", unitHandler.FindBySymbol)
	api.GET("/batches/expiring", batchHandler.ListExpiring)

	stock := api.Group("/stock")
	{
		stock.GET("/batches/:id", stockHandler.Snapshot)
		stock.GET("/scopes/:kind/:scopeKey", stockHandler.ListByScope)
		stock.GET("/ledger", stockHandler.Ledger)
		stock.GET("/ledger/reference/:reference", stockHandler.LedgerByReference)
	}

	reportsGroup := api.Group("/reports")
	{
		reportsGroup.GET("/turnover", reportsHandler.Turnover)
		reportsGroup.GET("/balance/:batchId", reportsHandler.BalanceAt)
		reportsGroup.GET("/reconcile/:batchId", reportsHandler.Reconcile)
	}

	api.GET("/alerts", reportsHandler.CheckAlerts)
	api.GET("/alerts/batches/:batchId", reportsHandler.CheckBatchAlert)

	// Mutations must be attributable to an actor.
	mutating := api.Group("")
	mutating.Use(middleware.RequireActor())
	{
		RegisterCatalogWriteRoutes(mutating.Group("/products"), productHandler)
		RegisterCatalogWriteRoutes(mutating.Group("/units"), unitHandler)
		RegisterCatalogWriteRoutes(mutating.Group("/batches"), batchHandler)

		mutating.POST("/products/:id/units", unitHandler.AddProductUnit)
		mutating.DELETE("/product-units/:id", unitHandler.RemoveProductUnit)

		mutating.POST("/stock/batches/:id/status", stockHandler.SetPoolStatus)

		RegisterRequestWriteRoutes(mutating.Group("/requests/purchases"), purchaseHandler)
		RegisterRequestWriteRoutes(mutating.Group("/requests/withdrawals"), withdrawalHandler)
		RegisterRequestWriteRoutes(mutating.Group("/requests/corrections"), correctionHandler)
	}

	return r
}
