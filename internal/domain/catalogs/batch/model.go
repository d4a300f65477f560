// Package batch provides the Product Batch catalog.
// A batch is a specific delivery of a product: its own batch number,
// expiry date and purchase price. All stock pools reference a batch.
package batch

import (
	"context"
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Batch represents a product batch.
type Batch struct {
	entity.Catalog

	// ProductID references the owning product
	ProductID id.ID `db:"product_id" json:"productId"`

	// BatchNumber is the manufacturer batch/lot number (unique)
	BatchNumber string `db:"batch_number" json:"batchNumber"`

	// ManufactureDate is when the batch was produced
	ManufactureDate *time.Time `db:"manufacture_date" json:"manufactureDate,omitempty"`

	// ExpiryDate is when the batch expires
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// UnitPrice is the purchase price per base unit, in minor currency units
	UnitPrice types.MinorUnits `db:"unit_price" json:"unitPrice"`

	// WarningQuantity is the low-stock threshold in base units
	WarningQuantity types.Quantity `db:"warning_quantity" json:"warningQuantity"`
}

// NewBatch creates a new Batch.
func NewBatch(productID id.ID, batchNumber string) *Batch {
	b := &Batch{
		Catalog:     entity.NewCatalog(batchNumber, batchNumber),
		ProductID:   productID,
		BatchNumber: batchNumber,
	}
	return b
}

// Validate implements entity.Validatable interface.
func (b *Batch) Validate(ctx context.Context) error {
	if err := b.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("productId is required").
			WithDetail("field", "productId")
	}

	if b.BatchNumber == "" {
		return apperror.NewValidation("batchNumber is required").
			WithDetail("field", "batchNumber")
	}

	if b.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}

	if b.WarningQuantity.IsNegative() {
		return apperror.NewValidation("warning quantity cannot be negative").
			WithDetail("field", "warningQuantity")
	}

	if b.ManufactureDate != nil && b.ExpiryDate != nil && b.ExpiryDate.Before(*b.ManufactureDate) {
		return apperror.NewValidation("expiry date cannot precede manufacture date").
			WithDetail("field", "expiryDate")
	}

	return nil
}

// IsExpired reports whether the batch is past its expiry date at t.
func (b *Batch) IsExpired(t time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(t)
}
