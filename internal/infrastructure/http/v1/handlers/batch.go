package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// BatchHandler provides batch catalog endpoints.
type BatchHandler struct {
	*CatalogHandler[*batch.Batch, dto.CreateBatchRequest, dto.UpdateBatchRequest]
	service *batch.Service
}

// NewBatchHandler creates a batch handler.
func NewBatchHandler(service *batch.Service) *BatchHandler {
	cfg := CatalogHandlerConfig[*batch.Batch, dto.CreateBatchRequest, dto.UpdateBatchRequest]{
		Service:    service.CatalogService,
		EntityName: "batch",
		MapCreateDTO: func(req dto.CreateBatchRequest) (*batch.Batch, error) {
			productID, err := id.Parse(req.ProductID)
			if err != nil {
				return nil, err
			}
			b := batch.NewBatch(productID, req.BatchNumber)
			if req.Name != "" {
				b.Name = req.Name
			}
			b.ManufactureDate = req.ManufactureDate
			b.ExpiryDate = req.ExpiryDate
			b.UnitPrice = req.UnitPrice
			b.WarningQuantity = req.WarningQuantity
			return b, nil
		},
		MapUpdateDTO: func(b *batch.Batch, req dto.UpdateBatchRequest) error {
			if req.Name != nil {
				b.Name = *req.Name
			}
			if req.ManufactureDate != nil {
				b.ManufactureDate = req.ManufactureDate
			}
			if req.ExpiryDate != nil {
				b.ExpiryDate = req.ExpiryDate
			}
			if req.UnitPrice != nil {
				b.UnitPrice = *req.UnitPrice
			}
			if req.WarningQuantity != nil {
				b.WarningQuantity = *req.WarningQuantity
			}
			b.Version = req.Version
			return nil
		},
		MapToDTO: func(b *batch.Batch) any {
			return dto.FromBatch(b)
		},
	}

	return &BatchHandler{
		CatalogHandler: NewCatalogHandler(cfg),
		service:        service,
	}
}

// ListByProduct handles GET /products/:id/batches
func (h *BatchHandler) ListByProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	batches, err := h.service.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		items = append(items, dto.FromBatch(b))
	}
	h.OK(c, items)
}

// ListExpiring handles GET /batches/expiring?withinDays=30
func (h *BatchHandler) ListExpiring(c *gin.Context) {
	days := h.ParseIntQuery(c, "withinDays", 30)

	batches, err := h.service.ListExpiring(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		items = append(items, dto.FromBatch(b))
	}
	h.OK(c, items)
}
