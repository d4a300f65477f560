package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests/correction"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// CorrectionHandler provides correction request endpoints.
type CorrectionHandler struct {
	BaseHandler
	service *correction.Service
}

// NewCorrectionHandler creates a correction request handler.
func NewCorrectionHandler(service *correction.Service) *CorrectionHandler {
	return &CorrectionHandler{service: service}
}

func (h *CorrectionHandler) applyItems(req *correction.Request, items []dto.CorrectionItemInput) error {
	req.Items = nil
	for _, item := range items {
		batchID, err := id.Parse(item.BatchID)
		if err != nil {
			return err
		}
		productUnitID, err := id.Parse(item.ProductUnitID)
		if err != nil {
			return err
		}

		line := correction.Item{
			BatchID:       batchID,
			PoolKind:      entity.PoolKind(item.PoolKind),
			ScopeKey:      item.ScopeKey,
			ProductUnitID: productUnitID,
			Quantity:      item.Quantity,
			Notes:         item.Notes,
		}
		if item.SetStatus != nil {
			status := entity.PoolStatus(*item.SetStatus)
			line.SetStatus = &status
		}
		req.AddItem(line)
	}
	return nil
}

// Create handles POST /requests/corrections
func (h *CorrectionHandler) Create(c *gin.Context) {
	var body dto.CreateCorrectionRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	req := correction.New(appctx.GetActorID(ctx), body.Reason)
	req.Comment = body.Comment
	if err := h.applyItems(req, body.Items); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, req); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, req)
}

// Get handles GET /requests/corrections/:id
func (h *CorrectionHandler) Get(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	req, err := h.service.GetByID(c.Request.Context(), reqID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, req)
}

// List handles GET /requests/corrections
func (h *CorrectionHandler) List(c *gin.Context) {
	var query dto.RequestListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	f := correction.ListFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		status := entity.RequestStatus(query.Status)
		f.Status = &status
	}

	items, total, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}

// Update handles PUT /requests/corrections/:id
func (h *CorrectionHandler) Update(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var body dto.UpdateCorrectionRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	req, err := h.service.GetByID(ctx, reqID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.Reason = body.Reason
	req.Comment = body.Comment
	req.Version = body.Version
	if err := h.applyItems(req, body.Items); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, req); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, req)
}

// Delete handles DELETE /requests/corrections/:id
func (h *CorrectionHandler) Delete(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), reqID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Transition handles POST /requests/corrections/:id/transition
func (h *CorrectionHandler) Transition(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var body dto.TransitionRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.SetApproval(ctx, reqID, entity.RequestStatus(body.Status)); err != nil {
		h.Error(c, err)
		return
	}

	req, err := h.service.GetByID(ctx, reqID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, req)
}
