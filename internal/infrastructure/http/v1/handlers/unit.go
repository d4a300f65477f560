package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/catalogs/unit"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// UnitHandler provides unit catalog and product-unit binding endpoints.
type UnitHandler struct {
	*CatalogHandler[*unit.Unit, dto.CreateUnitRequest, dto.UpdateUnitRequest]
	service *unit.Service
}

// NewUnitHandler creates a unit handler.
func NewUnitHandler(service *unit.Service) *UnitHandler {
	cfg := CatalogHandlerConfig[*unit.Unit, dto.CreateUnitRequest, dto.UpdateUnitRequest]{
		Service:    service.CatalogService,
		EntityName: "unit",
		MapCreateDTO: func(req dto.CreateUnitRequest) (*unit.Unit, error) {
			u := unit.NewUnit(req.Code, req.Name, req.Symbol)
			u.Description = req.Description
			return u, nil
		},
		MapUpdateDTO: func(u *unit.Unit, req dto.UpdateUnitRequest) error {
			if req.Name != nil {
				u.Name = *req.Name
			}
			if req.Symbol != nil {
				u.Symbol = *req.Symbol
			}
			if req.Description != nil {
				u.Description = req.Description
			}
			u.Version = req.Version
			return nil
		},
		MapToDTO: func(u *unit.Unit) any {
			return dto.FromUnit(u)
		},
	}

	return &UnitHandler{
		CatalogHandler: NewCatalogHandler(cfg),
		service:        service,
	}
}

// FindBySymbol handles GET /symbol/:symbol
func (h *UnitHandler) FindBySymbol(c *gin.Context) {
	u, err := h.service.FindBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromUnit(u))
}

// AddProductUnit handles POST /products/:id/units
func (h *UnitHandler) AddProductUnit(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AddProductUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	unitID, err := id.Parse(req.UnitID)
	if err != nil {
		h.Error(c, err)
		return
	}

	pu := unit.NewProductUnit(productID, unitID, req.ConversionToBase)
	if err := h.service.AddProductUnit(c.Request.Context(), pu); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromProductUnit(pu))
}

// ListProductUnits handles GET /products/:id/units
func (h *UnitHandler) ListProductUnits(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	bindings, err := h.service.ListProductUnits(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ProductUnitResponse, 0, len(bindings))
	for _, pu := range bindings {
		items = append(items, dto.FromProductUnit(pu))
	}
	h.OK(c, items)
}

// RemoveProductUnit handles DELETE /product-units/:id
func (h *UnitHandler) RemoveProductUnit(c *gin.Context) {
	productUnitID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.RemoveProductUnit(c.Request.Context(), productUnitID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
