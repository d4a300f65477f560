package product

import (
	"context"

	"clinicstock/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByBarcode retrieves product by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
}
