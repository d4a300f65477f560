// Package product provides the Product catalog.
// Products are consumables and materials tracked by the stock engine.
package product

import (
	"context"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
)

// ProductType defines the product category.
type ProductType string

const (
	TypeMedication ProductType = "medication"
	TypeConsumable ProductType = "consumable"
	TypeInstrument ProductType = "instrument"
	TypeOther      ProductType = "other"
)

// Product represents a stocked item. Quantities for a product are always
// stored in its base unit; display units are defined in the unit catalog.
type Product struct {
	entity.Catalog

	// Type defines the product category
	Type ProductType `db:"type" json:"type"`

	// Article is the product article/SKU
	Article *string `db:"article" json:"article,omitempty"`

	// Barcode is the product barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// RequiresColdChain marks products needing refrigerated storage
	RequiresColdChain bool `db:"requires_cold_chain" json:"requiresColdChain"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, productType ProductType) *Product {
	return &Product{
		Catalog: entity.NewCatalog(code, name),
		Type:    productType,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidProductType(p.Type) {
		return apperror.NewValidation("invalid product type").
			WithDetail("field", "type").
			WithDetail("value", string(p.Type))
	}

	return nil
}

// --- Validation Helpers ---

func isValidProductType(t ProductType) bool {
	switch t {
	case TypeMedication, TypeConsumable, TypeInstrument, TypeOther:
		return true
	}
	return false
}
