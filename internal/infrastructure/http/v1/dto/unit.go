package dto

import (
	"github.com/shopspring/decimal"

	"clinicstock/internal/domain/catalogs/unit"
)

// CreateUnitRequest for unit creation.
type CreateUnitRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Symbol      string  `json:"symbol" binding:"required"`
	Description *string `json:"description"`
}

// UpdateUnitRequest for unit updates.
type UpdateUnitRequest struct {
	Name        *string `json:"name"`
	Symbol      *string `json:"symbol"`
	Description *string `json:"description"`
	Version     int     `json:"version" binding:"required"`
}

// UnitResponse contains unit data.
type UnitResponse struct {
	CatalogResponse
	Symbol      string  `json:"symbol"`
	Description *string `json:"description,omitempty"`
}

// FromUnit creates UnitResponse from domain entity.
func FromUnit(u *unit.Unit) UnitResponse {
	return UnitResponse{
		CatalogResponse: FromCatalog(u.Catalog),
		Symbol:          u.Symbol,
		Description:     u.Description,
	}
}

// AddProductUnitRequest binds a unit to a product with a conversion factor.
// Factor 1 declares the product's base unit.
type AddProductUnitRequest struct {
	UnitID           string          `json:"unitId" binding:"required,uuid"`
	ConversionToBase decimal.Decimal `json:"conversionToBase" binding:"required"`
}

// ProductUnitResponse contains a product-unit binding.
type ProductUnitResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	UnitID           string          `json:"unitId"`
	ConversionToBase decimal.Decimal `json:"conversionToBase"`
	IsBase           bool            `json:"isBase"`
}

// FromProductUnit creates ProductUnitResponse from domain entity.
func FromProductUnit(pu *unit.ProductUnit) ProductUnitResponse {
	return ProductUnitResponse{
		ID:               pu.ID.String(),
		ProductID:        pu.ProductID.String(),
		UnitID:           pu.UnitID.String(),
		ConversionToBase: pu.ConversionToBase,
		IsBase:           pu.IsBase(),
	}
}
