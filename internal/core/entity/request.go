package entity

import (
	"context"
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
)

// RequestStatus is the workflow state of an approval request.
type RequestStatus string

const (
	// StatusPending is the initial state. Only pending requests are editable.
	StatusPending RequestStatus = "PENDING"
	// StatusApproved means the request passed approval. Terminal for
	// purchases and corrections, intermediate for custody withdrawals.
	StatusApproved RequestStatus = "APPROVED"
	// StatusRejected is terminal, no stock effect.
	StatusRejected RequestStatus = "REJECTED"
	// StatusIssued is terminal for withdrawals, stock has physically moved.
	StatusIssued RequestStatus = "ISSUED"
)

// Valid reports whether s is a known status value.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusIssued:
		return true
	}
	return false
}

// Request is the base type for approval workflow documents.
// Examples: PurchaseRequest, WithdrawalRequest, CorrectionRequest.
type Request struct {
	BaseRequest

	// Number is the request number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the request
	Date time.Time `db:"date" json:"date"`

	// Status is the current workflow state
	Status RequestStatus `db:"status" json:"status"`

	// RequestedBy is the actor who created the request
	RequestedBy string `db:"requested_by" json:"requestedBy"`

	// DecidedBy / DecidedAt record the approval or rejection
	DecidedBy *string    `db:"decided_by" json:"decidedBy,omitempty"`
	DecidedAt *time.Time `db:"decided_at" json:"decidedAt,omitempty"`

	// IssuedBy / IssuedAt record physical issuance (withdrawals only)
	IssuedBy *string    `db:"issued_by" json:"issuedBy,omitempty"`
	IssuedAt *time.Time `db:"issued_at" json:"issuedAt,omitempty"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewRequest creates a new Request in PENDING state.
func NewRequest(requestedBy string) Request {
	return Request{
		BaseRequest: NewBaseRequest(),
		Date:        time.Now().UTC(),
		Status:      StatusPending,
		RequestedBy: requestedBy,
	}
}

// Validate implements Validatable interface.
func (r *Request) Validate(ctx context.Context) error {
	if r.RequestedBy == "" {
		return apperror.NewValidation("requestedBy is required").
			WithDetail("field", "requestedBy")
	}

	if r.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

// CanModify checks if the request can be edited or deleted.
// Anything past PENDING is immutable.
func (r *Request) CanModify() error {
	if r.Status != StatusPending {
		return apperror.NewRequestNotEditable("request", string(r.Status)).
			WithDetail("request_id", r.ID.String())
	}
	return nil
}

// IsTerminal reports whether the request reached a final state.
// APPROVED is terminal here only for kinds that never issue; withdrawal
// services treat APPROVED as intermediate via their transition table.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusRejected || r.Status == StatusIssued
}

// MarkApproved records the approval decision.
func (r *Request) MarkApproved(actor string) {
	now := time.Now().UTC()
	r.Status = StatusApproved
	r.DecidedBy = &actor
	r.DecidedAt = &now
	r.Touch()
}

// MarkRejected records the rejection decision.
func (r *Request) MarkRejected(actor string) {
	now := time.Now().UTC()
	r.Status = StatusRejected
	r.DecidedBy = &actor
	r.DecidedAt = &now
	r.Touch()
}

// MarkIssued records physical issuance.
func (r *Request) MarkIssued(actor string) {
	now := time.Now().UTC()
	r.Status = StatusIssued
	r.IssuedBy = &actor
	r.IssuedAt = &now
	r.Touch()
}

// GetID returns the request ID.
func (r *Request) GetID() id.ID {
	return r.ID
}

// GetStatus returns the current workflow state.
func (r *Request) GetStatus() RequestStatus {
	return r.Status
}
