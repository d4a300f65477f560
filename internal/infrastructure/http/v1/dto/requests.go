package dto

import "clinicstock/internal/core/types"

// RequestItemInput is one line of a purchase or withdrawal request.
// Quantity is in the unit named by productUnitId; conversion to base
// happens server-side when the request takes stock effect.
type RequestItemInput struct {
	BatchID       string         `json:"batchId" binding:"required,uuid"`
	ProductUnitID string         `json:"productUnitId" binding:"required,uuid"`
	Quantity      types.Quantity `json:"quantity" binding:"required"`
	Notes         string         `json:"notes"`
}

// CreatePurchaseRequest for purchase request creation.
type CreatePurchaseRequest struct {
	SupplierName string             `json:"supplierName"`
	Comment      string             `json:"comment"`
	Items        []RequestItemInput `json:"items" binding:"required,min=1,dive"`
}

// UpdatePurchaseRequest replaces the editable fields of a pending request.
type UpdatePurchaseRequest struct {
	SupplierName string             `json:"supplierName"`
	Comment      string             `json:"comment"`
	Items        []RequestItemInput `json:"items" binding:"required,min=1,dive"`
	Version      int                `json:"version" binding:"required"`
}

// CreateWithdrawalRequest for withdrawal request creation.
type CreateWithdrawalRequest struct {
	MoveKind    string             `json:"moveKind" binding:"required,oneof=main_to_location location_to_main custody"`
	TargetScope string             `json:"targetScope" binding:"required"`
	Comment     string             `json:"comment"`
	Items       []RequestItemInput `json:"items" binding:"required,min=1,dive"`
}

// UpdateWithdrawalRequest replaces the editable fields of a pending request.
type UpdateWithdrawalRequest struct {
	MoveKind    string             `json:"moveKind" binding:"required,oneof=main_to_location location_to_main custody"`
	TargetScope string             `json:"targetScope" binding:"required"`
	Comment     string             `json:"comment"`
	Items       []RequestItemInput `json:"items" binding:"required,min=1,dive"`
	Version     int                `json:"version" binding:"required"`
}

// CorrectionItemInput is one line of a correction request. Quantity is
// signed: positive credits the pool, negative debits it.
type CorrectionItemInput struct {
	BatchID       string         `json:"batchId" binding:"required,uuid"`
	PoolKind      string         `json:"poolKind" binding:"required,oneof=MAIN LOCATION PERSONAL"`
	ScopeKey      string         `json:"scopeKey"`
	ProductUnitID string         `json:"productUnitId" binding:"required,uuid"`
	Quantity      types.Quantity `json:"quantity" binding:"required"`
	SetStatus     *string        `json:"setStatus" binding:"omitempty,oneof=ACTIVE RESERVED FINISHED DAMAGED LOST RETURNED"`
	Notes         string         `json:"notes"`
}

// CreateCorrectionRequest for correction request creation.
type CreateCorrectionRequest struct {
	Reason  string                `json:"reason" binding:"required"`
	Comment string                `json:"comment"`
	Items   []CorrectionItemInput `json:"items" binding:"required,min=1,dive"`
}

// UpdateCorrectionRequest replaces the editable fields of a pending request.
type UpdateCorrectionRequest struct {
	Reason  string                `json:"reason" binding:"required"`
	Comment string                `json:"comment"`
	Items   []CorrectionItemInput `json:"items" binding:"required,min=1,dive"`
	Version int                   `json:"version" binding:"required"`
}

// TransitionRequest moves a request through its workflow.
type TransitionRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED ISSUED"`
}

// RequestListQuery filters request lists.
type RequestListQuery struct {
	Status      string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED ISSUED"`
	MoveKind    string `form:"moveKind" binding:"omitempty,oneof=main_to_location location_to_main custody"`
	TargetScope string `form:"targetScope"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}
