package batch

import (
	"context"
	"time"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain"
)

// Repository defines the interface for Batch persistence.
type Repository interface {
	domain.CatalogRepository[*Batch]

	// FindByBatchNumber retrieves batch by its unique batch number.
	FindByBatchNumber(ctx context.Context, number string) (*Batch, error)

	// ListByProduct retrieves all batches of a product.
	ListByProduct(ctx context.Context, productID id.ID) ([]*Batch, error)

	// ListExpiring retrieves non-deleted batches expiring before the deadline.
	ListExpiring(ctx context.Context, deadline time.Time) ([]*Batch, error)
}
