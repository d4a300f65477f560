package dto

import "clinicstock/internal/domain/catalogs/product"

// CreateProductRequest for product creation. Code is optional: the
// numerator assigns one when omitted.
type CreateProductRequest struct {
	Code              string  `json:"code"`
	Name              string  `json:"name" binding:"required"`
	Type              string  `json:"type" binding:"required,oneof=medication consumable instrument other"`
	Article           *string `json:"article"`
	Barcode           *string `json:"barcode"`
	Description       *string `json:"description"`
	RequiresColdChain bool    `json:"requiresColdChain"`
	ParentID          *string `json:"parentId"`
	IsFolder          bool    `json:"isFolder"`
}

// UpdateProductRequest for product updates. Version is required for
// optimistic locking.
type UpdateProductRequest struct {
	Name              *string `json:"name"`
	Type              *string `json:"type" binding:"omitempty,oneof=medication consumable instrument other"`
	Article           *string `json:"article"`
	Barcode           *string `json:"barcode"`
	Description       *string `json:"description"`
	RequiresColdChain *bool   `json:"requiresColdChain"`
	ParentID          *string `json:"parentId"`
	Version           int     `json:"version" binding:"required"`
}

// ProductResponse contains product data.
type ProductResponse struct {
	CatalogResponse
	Type              string  `json:"type"`
	Article           *string `json:"article,omitempty"`
	Barcode           *string `json:"barcode,omitempty"`
	Description       *string `json:"description,omitempty"`
	RequiresColdChain bool    `json:"requiresColdChain"`
}

// FromProduct creates ProductResponse from domain entity.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		CatalogResponse:   FromCatalog(p.Catalog),
		Type:              string(p.Type),
		Article:           p.Article,
		Barcode:           p.Barcode,
		Description:       p.Description,
		RequiresColdChain: p.RequiresColdChain,
	}
}
