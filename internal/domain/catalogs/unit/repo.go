package unit

import (
	"context"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain"
)

// Repository defines the interface for Unit persistence.
type Repository interface {
	domain.CatalogRepository[*Unit]

	// FindBySymbol retrieves unit by symbol (unique within the database).
	FindBySymbol(ctx context.Context, symbol string) (*Unit, error)
}

// ProductUnitRepository defines persistence for product unit bindings.
type ProductUnitRepository interface {
	// Create inserts a new binding
	Create(ctx context.Context, pu *ProductUnit) error

	// GetByID retrieves binding by ID
	GetByID(ctx context.Context, id id.ID) (*ProductUnit, error)

	// ListByProduct retrieves all bindings of a product
	ListByProduct(ctx context.Context, productID id.ID) ([]*ProductUnit, error)

	// FindBase retrieves the product's base unit binding (factor = 1)
	FindBase(ctx context.Context, productID id.ID) (*ProductUnit, error)

	// SetDeletionMark sets or clears the deletion mark
	SetDeletionMark(ctx context.Context, id id.ID, marked bool) error
}
