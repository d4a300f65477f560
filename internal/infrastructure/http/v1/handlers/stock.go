package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/ledger"
	"clinicstock/internal/domain/pools"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// StockHandler provides read access to pools and the ledger.
type StockHandler struct {
	BaseHandler
	pools  *pools.Service
	ledger *ledger.Service
}

// NewStockHandler creates a stock handler.
func NewStockHandler(poolSvc *pools.Service, ledgerSvc *ledger.Service) *StockHandler {
	return &StockHandler{pools: poolSvc, ledger: ledgerSvc}
}

// Snapshot handles GET /stock/batches/:id
func (h *StockHandler) Snapshot(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	snap, err := h.pools.GetSnapshot(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, snap)
}

// ListByScope handles GET /stock/scopes/:kind/:scopeKey
func (h *StockHandler) ListByScope(c *gin.Context) {
	kind := entity.PoolKind(c.Param("kind"))
	if !kind.Valid() {
		h.Error(c, apperror.NewValidation("invalid pool kind").
			WithDetail("kind", c.Param("kind")))
		return
	}

	items, err := h.pools.ListByScope(c.Request.Context(), kind, c.Param("scopeKey"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// SetPoolStatus handles POST /stock/batches/:id/status
func (h *StockHandler) SetPoolStatus(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var body dto.SetPoolStatusRequest
	if !h.BindJSON(c, &body) {
		return
	}

	key := entity.PoolKey{
		BatchID:  batchID,
		Kind:     entity.PoolKind(body.Kind),
		ScopeKey: body.ScopeKey,
	}
	if err := h.pools.SetStatus(c.Request.Context(), key, entity.PoolStatus(body.Status)); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SuccessResponse{Success: true})
}

// Ledger handles GET /stock/ledger
func (h *StockHandler) Ledger(c *gin.Context) {
	var query dto.LedgerQueryRequest
	if !h.BindQuery(c, &query) {
		return
	}

	f := ledger.Filter{
		Reference: query.Reference,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	if query.BatchID != "" {
		batchID, err := id.Parse(query.BatchID)
		if err != nil {
			h.Error(c, err)
			return
		}
		f.BatchID = &batchID
	}
	if query.ProductID != "" {
		productID, err := id.Parse(query.ProductID)
		if err != nil {
			h.Error(c, err)
			return
		}
		f.ProductID = &productID
	}
	if query.StockType != "" {
		kind := entity.PoolKind(query.StockType)
		f.StockType = &kind
	}
	if query.ScopeKey != "" {
		f.ScopeKey = &query.ScopeKey
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from timestamp"))
			return
		}
		f.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to timestamp"))
			return
		}
		f.To = &to
	}

	entries, total, err := h.ledger.Find(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      entries,
		TotalCount: total,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}

// LedgerByReference handles GET /stock/ledger/reference/:reference
// Returns all rows of one movement, e.g. both legs of a transfer.
func (h *StockHandler) LedgerByReference(c *gin.Context) {
	entries, err := h.ledger.FindByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}
