package dto

// SetPoolStatusRequest annotates a pool with a lifecycle status.
type SetPoolStatusRequest struct {
	Kind     string `json:"kind" binding:"required,oneof=MAIN LOCATION PERSONAL"`
	ScopeKey string `json:"scopeKey"`
	Status   string `json:"status" binding:"required,oneof=ACTIVE RESERVED FINISHED DAMAGED LOST RETURNED"`
}

// LedgerQueryRequest filters ledger rows. From is inclusive, To exclusive.
type LedgerQueryRequest struct {
	BatchID   string `form:"batchId" binding:"omitempty,uuid"`
	ProductID string `form:"productId" binding:"omitempty,uuid"`
	Reference string `form:"reference"`
	StockType string `form:"stockType" binding:"omitempty,oneof=MAIN LOCATION PERSONAL"`
	ScopeKey  string `form:"scopeKey"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// TurnoverQueryRequest selects the period for the turnover report.
type TurnoverQueryRequest struct {
	From      string `form:"from" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `form:"to" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	BatchID   string `form:"batchId" binding:"omitempty,uuid"`
	ProductID string `form:"productId" binding:"omitempty,uuid"`
}
