package dto

import (
	"time"

	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/catalogs/batch"
)

// CreateBatchRequest for batch creation.
type CreateBatchRequest struct {
	ProductID       string           `json:"productId" binding:"required,uuid"`
	BatchNumber     string           `json:"batchNumber" binding:"required"`
	Name            string           `json:"name"`
	ManufactureDate *time.Time       `json:"manufactureDate"`
	ExpiryDate      *time.Time       `json:"expiryDate"`
	UnitPrice       types.MinorUnits `json:"unitPrice"`
	WarningQuantity types.Quantity   `json:"warningQuantity"`
}

// UpdateBatchRequest for batch updates. The owning product and batch
// number are immutable once stock history exists; only descriptive
// fields and thresholds change.
type UpdateBatchRequest struct {
	Name            *string           `json:"name"`
	ManufactureDate *time.Time        `json:"manufactureDate"`
	ExpiryDate      *time.Time        `json:"expiryDate"`
	UnitPrice       *types.MinorUnits `json:"unitPrice"`
	WarningQuantity *types.Quantity   `json:"warningQuantity"`
	Version         int               `json:"version" binding:"required"`
}

// BatchResponse contains batch data.
type BatchResponse struct {
	CatalogResponse
	ProductID       string           `json:"productId"`
	BatchNumber     string           `json:"batchNumber"`
	ManufactureDate *time.Time       `json:"manufactureDate,omitempty"`
	ExpiryDate      *time.Time       `json:"expiryDate,omitempty"`
	UnitPrice       types.MinorUnits `json:"unitPrice"`
	WarningQuantity types.Quantity   `json:"warningQuantity"`
}

// FromBatch creates BatchResponse from domain entity.
func FromBatch(b *batch.Batch) BatchResponse {
	return BatchResponse{
		CatalogResponse: FromCatalog(b.Catalog),
		ProductID:       b.ProductID.String(),
		BatchNumber:     b.BatchNumber,
		ManufactureDate: b.ManufactureDate,
		ExpiryDate:      b.ExpiryDate,
		UnitPrice:       b.UnitPrice,
		WarningQuantity: b.WarningQuantity,
	}
}
