package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests/withdrawal"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// WithdrawalHandler provides withdrawal request endpoints.
type WithdrawalHandler struct {
	BaseHandler
	service *withdrawal.Service
}

// NewWithdrawalHandler creates a withdrawal request handler.
func NewWithdrawalHandler(service *withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{service: service}
}

func (h *WithdrawalHandler) applyItems(req *withdrawal.Request, items []dto.RequestItemInput) error {
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

// Create handles POST /requests/withdrawals
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var body dto.CreateWithdrawalRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	req := withdrawal.New(appctx.GetActorID(ctx), withdrawal.MoveKind(body.MoveKind), body.TargetScope)
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

// Get handles GET /requests/withdrawals/:id
func (h *WithdrawalHandler) Get(c *gin.Context) {
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

// List handles GET /requests/withdrawals
func (h *WithdrawalHandler) List(c *gin.Context) {
	var query dto.RequestListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	f := withdrawal.ListFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		status := entity.RequestStatus(query.Status)
		f.Status = &status
	}
	if query.MoveKind != "" {
		kind := withdrawal.MoveKind(query.MoveKind)
		f.MoveKind = &kind
	}
	if query.TargetScope != "" {
		f.TargetScope = &query.TargetScope
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

// Update handles PUT /requests/withdrawals/:id
func (h *WithdrawalHandler) Update(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var body dto.UpdateWithdrawalRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	req, err := h.service.GetByID(ctx, reqID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.MoveKind = withdrawal.MoveKind(body.MoveKind)
	req.TargetScope = body.TargetScope
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

// Delete handles DELETE /requests/withdrawals/:id
func (h *WithdrawalHandler) Delete(c *gin.Context) {
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

// Transition handles POST /requests/withdrawals/:id/transition
func (h *WithdrawalHandler) Transition(c *gin.Context) {
	reqID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var body dto.TransitionRequest
	if !h.BindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.SetStatus(ctx, reqID, entity.RequestStatus(body.Status)); err != nil {
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
