package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests/purchase"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler provides purchase request endpoints.
type PurchaseHandler struct {
	BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a purchase request handler.
func NewPurchaseHandler(service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

func (h *PurchaseHandler) applyItems(req *purchase.Request, items []dto.RequestItemInput) error {
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
		req.AddItem(batchID, productUnitID, item.Quantity, item.Notes)
	}
	return nil
}

// Create handles POST /requests/purchases
func (h *PurchaseHandler) Create(c *gin.Context) {
	var body dto.CreatePurchaseRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	req := purchase.New(appctx.GetActorID(ctx))
	req.SupplierName = body.SupplierName
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

// Get handles GET /requests/purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
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

// List handles GET /requests/purchases
func (h *PurchaseHandler) List(c *gin.Context) {
	var query dto.RequestListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	f := purchase.ListFilter{Limit: query.Limit, Offset: query.Offset}
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

// Update handles PUT /requests/purchases/:id
func (h *PurchaseHandler) Update(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var body dto.UpdatePurchaseRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	req, err := h.service.GetByID(ctx, reqID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.SupplierName = body.SupplierName
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

// Delete handles DELETE /requests/purchases/:id
func (h *PurchaseHandler) Delete(c *gin.Context) {
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

// Transition handles POST /requests/purchases/:id/transition
func (h *PurchaseHandler) Transition(c *gin.Context) {
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
