package requests

import (
	"context"
	"time"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
)

// TransitionRecord is one audit trail entry for a status transition.
type TransitionRecord struct {
	RequestID   id.ID                `json:"requestId"`
	RequestKind Kind                 `json:"requestKind"`
	FromStatus  entity.RequestStatus `json:"fromStatus"`
	ToStatus    entity.RequestStatus `json:"toStatus"`
	ActorID     string               `json:"actorId"`
	OccurredAt  time.Time            `json:"occurredAt"`

	// Payload is a snapshot of the request at transition time
	// (line items included). Stored compressed above a size threshold.
	Payload any `json:"payload,omitempty"`
}

// AuditRecorder persists transition records.
// Recording happens inside the transition transaction: if the audit write
// fails, the transition fails.
type AuditRecorder interface {
	RecordTransition(ctx context.Context, rec TransitionRecord) error
}

// NopAuditRecorder discards records (tests).
type NopAuditRecorder struct{}

func (NopAuditRecorder) RecordTransition(ctx context.Context, rec TransitionRecord) error {
	return nil
}
