// Package withdrawal provides withdrawal requests: moving stock out of the
// main pool to a location or into personal custody, or returning it.
package withdrawal

import (
	"context"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// MoveKind defines the direction of a withdrawal.
type MoveKind string

const (
	// MainToLocation stocks a treatment room from central storage.
	// May be issued directly from PENDING.
	MainToLocation MoveKind = "main_to_location"
	// LocationToMain returns room stock to central storage.
	// May be issued directly from PENDING.
	LocationToMain MoveKind = "location_to_main"
	// Custody issues stock to a staff member personally.
	// Requires the APPROVED gate before issuance.
	Custody MoveKind = "custody"
)

// Valid reports whether k is a known move kind.
func (k MoveKind) Valid() bool {
	switch k {
	case MainToLocation, LocationToMain, Custody:
		return true
	}
	return false
}

// RequiresApproval reports whether the kind needs APPROVED before ISSUED.
func (k MoveKind) RequiresApproval() bool {
	return k == Custody
}

// Item is one withdrawal request line.
type Item struct {
	// LineID identifies the line; the transfer's ledger rows use it as reference
	LineID id.ID `db:"line_id" json:"lineId"`

	RequestID id.ID `db:"request_id" json:"requestId"`

	BatchID id.ID `db:"batch_id" json:"batchId"`

	// ProductUnitID and Quantity are in the requested display unit;
	// conversion to base happens in the movement engine on issuance
	ProductUnitID id.ID          `db:"product_unit_id" json:"productUnitId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

// Request is a withdrawal approval request.
type Request struct {
	entity.Request

	// MoveKind is the direction of the withdrawal
	MoveKind MoveKind `db:"move_kind" json:"moveKind"`

	// TargetScope is the location ID (main<->location) or the staff
	// member ID (custody)
	TargetScope string `db:"target_scope" json:"targetScope"`

	Items []Item `db:"-" json:"items"`
}

// New creates a pending withdrawal request.
func New(requestedBy string, kind MoveKind, targetScope string) *Request {
	return &Request{
		Request:     entity.NewRequest(requestedBy),
		MoveKind:    kind,
		TargetScope: targetScope,
	}
}

// AddItem appends a line.
func (r *Request) AddItem(batchID, productUnitID id.ID, qty types.Quantity, notes string) *Item {
	item := Item{
		LineID:        id.New(),
		RequestID:     r.ID,
		BatchID:       batchID,
		ProductUnitID: productUnitID,
		Quantity:      qty,
		Notes:         notes,
	}
	r.Items = append(r.Items, item)
	return &r.Items[len(r.Items)-1]
}

// Validate implements entity.Validatable interface.
func (r *Request) Validate(ctx context.Context) error {
	if err := r.Request.Validate(ctx); err != nil {
		return err
	}

	if !r.MoveKind.Valid() {
		return apperror.NewValidation("invalid move kind").
			WithDetail("field", "moveKind").
			WithDetail("value", string(r.MoveKind))
	}

	if r.TargetScope == "" {
		return apperror.NewValidation("targetScope is required").
			WithDetail("field", "targetScope")
	}

	if len(r.Items) == 0 {
		return apperror.NewValidation("withdrawal request must have at least one item")
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
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("line", i).
				WithDetail("quantity", item.Quantity.String())
		}
	}

	return nil
}
