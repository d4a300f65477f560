// Package unit provides the Unit of Measure catalog and per-product units.
// Every product has exactly one base unit (conversion factor 1); all pool
// quantities and ledger rows are stored in base units.
package unit

import (
	"context"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
)

// Unit represents a measurement unit (ampoule, ml, box, piece).
type Unit struct {
	entity.Catalog

	// Symbol is the short symbol (e.g., "ml", "amp", "pcs")
	Symbol string `db:"symbol" json:"symbol"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewUnit creates a new Unit with required fields.
func NewUnit(code, name, symbol string) *Unit {
	return &Unit{
		Catalog: entity.NewCatalog(code, name),
		Symbol:  symbol,
	}
}

// Validate implements entity.Validatable interface.
func (u *Unit) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}

	if u.Symbol == "" {
		return apperror.NewValidation("symbol is required").
			WithDetail("field", "symbol")
	}

	return nil
}

// ProductUnit binds a unit to a product with a conversion factor.
// ConversionToBase answers: one of this unit equals how many base units?
// The base unit itself has factor exactly 1.
type ProductUnit struct {
	ID        id.ID `db:"id" json:"id"`
	ProductID id.ID `db:"product_id" json:"productId"`
	UnitID    id.ID `db:"unit_id" json:"unitId"`

	// ConversionToBase is the multiplier to base units, always positive.
	// e.g. box of 10 ampoules with base unit "ampoule": factor = 10
	ConversionToBase decimal.Decimal `db:"conversion_to_base" json:"conversionToBase"`

	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`
}

// NewProductUnit creates a product unit binding.
func NewProductUnit(productID, unitID id.ID, conversionToBase decimal.Decimal) *ProductUnit {
	return &ProductUnit{
		ID:               id.New(),
		ProductID:        productID,
		UnitID:           unitID,
		ConversionToBase: conversionToBase,
	}
}

// IsBase reports whether this binding is the product's base unit.
func (pu *ProductUnit) IsBase() bool {
	return pu.ConversionToBase.Equal(decimal.NewFromInt(1))
}

// Validate checks product unit invariants.
func (pu *ProductUnit) Validate(ctx context.Context) error {
	if id.IsNil(pu.ProductID) {
		return apperror.NewValidation("productId is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(pu.UnitID) {
		return apperror.NewValidation("unitId is required").
			WithDetail("field", "unitId")
	}
	if !pu.ConversionToBase.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("field", "conversionToBase")
	}
	return nil
}
