// Package correction provides correction requests: signed stock adjustments
// for inventory count differences, damage, loss and returns.
package correction

import (
	"context"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Item is one correction request line.
type Item struct {
	// LineID identifies the line; the correction's ledger row uses it as reference
	LineID id.ID `db:"line_id" json:"lineId"`

	RequestID id.ID `db:"request_id" json:"requestId"`

	BatchID id.ID `db:"batch_id" json:"batchId"`

	// PoolKind and ScopeKey address the pool being adjusted
	PoolKind entity.PoolKind `db:"pool_kind" json:"poolKind"`
	ScopeKey string          `db:"scope_key" json:"scopeKey,omitempty"`

	// ProductUnitID and Quantity are in the submitted display unit;
	// the sign picks the direction, conversion happens on approval
	ProductUnitID id.ID          `db:"product_unit_id" json:"productUnitId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`

	// SetStatus optionally annotates the pool (damaged, lost, returned)
	SetStatus *entity.PoolStatus `db:"set_status" json:"setStatus,omitempty"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

// Request is a correction approval request.
type Request struct {
	entity.Request

	// Reason is the mandatory explanation for the adjustment
	Reason string `db:"reason" json:"reason"`

	Items []Item `db:"-" json:"items"`
}

// New creates a pending correction request.
func New(requestedBy, reason string) *Request {
	return &Request{
		Request: entity.NewRequest(requestedBy),
		Reason:  reason,
	}
}

// AddItem appends a line.
func (r *Request) AddItem(item Item) *Item {
	item.LineID = id.New()
	item.RequestID = r.ID
	r.Items = append(r.Items, item)
	return &r.Items[len(r.Items)-1]
}

// Validate implements entity.Validatable interface.
func (r *Request) Validate(ctx context.Context) error {
	if err := r.Request.Validate(ctx); err != nil {
		return err
	}

	if r.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}

	if len(r.Items) == 0 {
		return apperror.NewValidation("correction request must have at least one item")
	}

	for i := range r.Items {
		item := &r.Items[i]
		if id.IsNil(item.BatchID) {
			return apperror.NewValidation("item batchId is required").
				WithDetail("line", i)
		}
		if id.IsNil(item.ProductUnitID) {
			return apperror.NewValidation("item productUnitId is required").
				WithDetail("line", i)
		}
		if !item.PoolKind.Valid() {
			return apperror.NewValidation("invalid pool kind").
				WithDetail("line", i).
				WithDetail("kind", string(item.PoolKind))
		}
		if item.PoolKind != entity.PoolMain && item.ScopeKey == "" {
			return apperror.NewValidation("scope key is required").
				WithDetail("line", i).
				WithDetail("kind", string(item.PoolKind))
		}
		if item.Quantity.IsZero() {
			return apperror.NewValidation("item quantity must be nonzero").
				WithDetail("line", i)
		}
		if item.SetStatus != nil && !item.SetStatus.Valid() {
			return apperror.NewValidation("invalid pool status").
				WithDetail("line", i).
				WithDetail("status", string(*item.SetStatus))
		}
	}

	return nil
}
