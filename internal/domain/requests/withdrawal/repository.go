package withdrawal

import (
	"context"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
)

// ListFilter narrows withdrawal request queries.
type ListFilter struct {
	Status      *entity.RequestStatus
	MoveKind    *MoveKind
	TargetScope *string
	Limit       int
	Offset      int
}

// Repository defines persistence for withdrawal requests.
type Repository interface {
	// Create inserts the request with its items.
	Create(ctx context.Context, req *Request) error

	// GetByID retrieves the request with items.
	GetByID(ctx context.Context, id id.ID) (*Request, error)

	// Update rewrites header and items with optimistic locking.
	Update(ctx context.Context, req *Request) error

	// UpdateStatus writes the status fields with optimistic locking.
	UpdateStatus(ctx context.Context, req *Request) error

	// SetDeletionMark soft-deletes the request.
	SetDeletionMark(ctx context.Context, id id.ID, marked bool) error

	// List retrieves requests (headers with items), newest first.
	List(ctx context.Context, f ListFilter) ([]*Request, int64, error)
}
