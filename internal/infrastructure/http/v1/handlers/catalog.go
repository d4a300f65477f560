package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/domain"
	"clinicstock/internal/domain/filter"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// CatalogHandlerConfig configures a generic catalog handler.
type CatalogHandlerConfig[T entity.Validatable, CreateDTO any, UpdateDTO any] struct {
	Service    *domain.CatalogService[T]
	EntityName string

	// MapCreateDTO builds a new entity from the create request.
	MapCreateDTO func(req CreateDTO) (T, error)

	// MapUpdateDTO applies the update request onto the loaded entity.
	MapUpdateDTO func(existing T, req UpdateDTO) error

	// MapToDTO converts the entity to its response shape.
	MapToDTO func(e T) any
}

// CatalogHandler provides CRUD endpoints for one catalog type.
type CatalogHandler[T entity.Validatable, CreateDTO any, UpdateDTO any] struct {
	BaseHandler
	cfg CatalogHandlerConfig[T, CreateDTO, UpdateDTO]
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler[T entity.Validatable, CreateDTO any, UpdateDTO any](
	cfg CatalogHandlerConfig[T, CreateDTO, UpdateDTO],
) *CatalogHandler[T, CreateDTO, UpdateDTO] {
	return &CatalogHandler[T, CreateDTO, UpdateDTO]{cfg: cfg}
}

// List handles GET /
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) List(c *gin.Context) {
	f := domain.DefaultListFilter()
	f.Search = c.Query("search")
	f.OrderBy = c.DefaultQuery("orderBy", f.OrderBy)
	f.Limit = h.ParseIntQuery(c, "limit", f.Limit)
	f.Offset = h.ParseIntQuery(c, "offset", 0)
	f.IncludeDeleted = c.Query("includeDeleted") == "true"

	if p := c.Query("parentId"); p != "" {
		f.ParentID = &p
	}
	if v := c.Query("isFolder"); v != "" {
		b := v == "true"
		f.IsFolder = &b
	}

	// Arbitrary field conditions arrive as a JSON-encoded "filter" param.
	if raw := c.Query("filter"); raw != "" {
		var items []filter.Item
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			h.Error(c, apperror.NewValidation("invalid filter parameter").
				WithDetail("error", err.Error()))
			return
		}
		f.AdvancedFilters = items
	}

	result, err := h.cfg.Service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, h.cfg.MapToDTO(e))
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /:id
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Get(c *gin.Context) {
	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	e, err := h.cfg.Service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.cfg.MapToDTO(e))
}

// Create handles POST /
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Create(c *gin.Context) {
	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	e, err := h.cfg.MapCreateDTO(req)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.cfg.Service.Create(c.Request.Context(), e); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, h.cfg.MapToDTO(e))
}

// Update handles PUT /:id
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Update(c *gin.Context) {
	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req UpdateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.cfg.Service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.cfg.MapUpdateDTO(existing, req); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.cfg.Service.Update(c.Request.Context(), existing); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.cfg.MapToDTO(existing))
}

// Delete handles DELETE /:id (soft delete).
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) Delete(c *gin.Context) {
	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.cfg.Service.Delete(c.Request.Context(), entityID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// SetDeletionMark handles POST /:id/deletion-mark
func (h *CatalogHandler[T, CreateDTO, UpdateDTO]) SetDeletionMark(c *gin.Context) {
	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetDeletionMarkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.cfg.Service.SetDeletionMark(c.Request.Context(), entityID, req.Marked); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SuccessResponse{Success: true})
}
