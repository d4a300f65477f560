package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/alerts"
	"clinicstock/internal/domain/reports"
)

// ReportsHandler provides reporting and alert endpoints.
type ReportsHandler struct {
	BaseHandler
	reports *reports.Service
	alerts  *alerts.Service
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(reportsSvc *reports.Service, alertsSvc *alerts.Service) *ReportsHandler {
	return &ReportsHandler{reports: reportsSvc, alerts: alertsSvc}
}

// Turnover handles GET /reports/turnover
func (h *ReportsHandler) Turnover(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		h.Error(c, apperror.NewValidation("from must be RFC3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		h.Error(c, apperror.NewValidation("to must be RFC3339"))
		return
	}

	q := reports.TurnoverQuery{From: from, To: to}
	if v := c.Query("batchId"); v != "" {
		batchID, err := id.Parse(v)
		if err != nil {
			h.Error(c, err)
			return
		}
		q.BatchID = &batchID
	}
	if v := c.Query("productId"); v != "" {
		productID, err := id.Parse(v)
		if err != nil {
			h.Error(c, err)
			return
		}
		q.ProductID = &productID
	}

	report, err := h.reports.Turnover(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// BalanceAt handles GET /reports/balance/:batchId?at=...
// Reconstructs the total on hand at a past moment from the ledger.
func (h *ReportsHandler) BalanceAt(c *gin.Context) {
	batchID, ok := h.ParseID(c, "batchId")
	if !ok {
		return
	}

	at := time.Now().UTC()
	if v := c.Query("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("at must be RFC3339"))
			return
		}
		at = parsed
	}

	qty, err := h.reports.BalanceAt(c.Request.Context(), batchID, at)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"batchId":  batchID.String(),
		"at":       at,
		"quantity": qty,
	})
}

// Reconcile handles GET /reports/reconcile/:batchId
func (h *ReportsHandler) Reconcile(c *gin.Context) {
	batchID, ok := h.ParseID(c, "batchId")
	if !ok {
		return
	}

	result, err := h.reports.Reconcile(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// CheckAlerts handles GET /alerts
func (h *ReportsHandler) CheckAlerts(c *gin.Context) {
	fired, err := h.alerts.CheckAll(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"alerts": fired, "count": len(fired)})
}

// CheckBatchAlert handles GET /alerts/batches/:batchId
func (h *ReportsHandler) CheckBatchAlert(c *gin.Context) {
	batchID, ok := h.ParseID(c, "batchId")
	if !ok {
		return
	}

	alert, err := h.alerts.Check(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if alert == nil {
		h.OK(c, gin.H{"fired": false})
		return
	}
	h.OK(c, gin.H{"fired": true, "alert": alert})
}
