// Package purchase provides purchase requests: incoming deliveries that
// credit the main pool once approved.
package purchase

import (
	"context"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Item is one purchase request line.
type Item struct {
	// LineID identifies the line; ledger rows of this line use it as reference
	LineID id.ID `db:"line_id" json:"lineId"`

	RequestID id.ID `db:"request_id" json:"requestId"`

	// BatchID is the batch being received
	BatchID id.ID `db:"batch_id" json:"batchId"`

	// ProductUnitID and Quantity are in the supplier's unit;
	// conversion to base happens in the movement engine on approval
	ProductUnitID id.ID          `db:"product_unit_id" json:"productUnitId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

// Request is a purchase approval request.
type Request struct {
	entity.Request

	// SupplierName is free-form; supplier management lives outside the engine
	SupplierName string `db:"supplier_name" json:"supplierName,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// New creates a pending purchase request.
func New(requestedBy string) *Request {
	return &Request{
		Request: entity.NewRequest(requestedBy),
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

	if len(r.Items) == 0 {
		return apperror.NewValidation("purchase request must have at least one item")
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
