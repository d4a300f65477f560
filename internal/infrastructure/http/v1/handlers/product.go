package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/catalogs/product"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// ProductHandler provides product catalog endpoints.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(service *product.Service) *ProductHandler {
	cfg := CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
		Service:    service.CatalogService,
		EntityName: "product",
		MapCreateDTO: func(req dto.CreateProductRequest) (*product.Product, error) {
			p := product.NewProduct(req.Code, req.Name, product.ProductType(req.Type))
			p.Article = req.Article
			p.Barcode = req.Barcode
			p.Description = req.Description
			p.RequiresColdChain = req.RequiresColdChain
			p.ParentID = req.ParentID
			p.IsFolder = req.IsFolder
			return p, nil
		},
		MapUpdateDTO: func(p *product.Product, req dto.UpdateProductRequest) error {
			if req.Name != nil {
				p.Name = *req.Name
			}
			if req.Type != nil {
				p.Type = product.ProductType(*req.Type)
			}
			if req.Article != nil {
				p.Article = req.Article
			}
			if req.Barcode != nil {
				p.Barcode = req.Barcode
			}
			if req.Description != nil {
				p.Description = req.Description
			}
			if req.RequiresColdChain != nil {
				p.RequiresColdChain = *req.RequiresColdChain
			}
			if req.ParentID != nil {
				p.ParentID = req.ParentID
			}
			p.Version = req.Version
			return nil
		},
		MapToDTO: func(p *product.Product) any {
			return dto.FromProduct(p)
		},
	}

	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(cfg),
		service:        service,
	}
}

// FindByBarcode handles GET /barcode/:barcode
func (h *ProductHandler) FindByBarcode(c *gin.Context) {
	p, err := h.service.FindByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}
