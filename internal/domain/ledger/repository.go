// Package ledger provides the append-only stock ledger: the authoritative
// history every pool quantity can be re-derived from.
package ledger

import (
	"context"
	"time"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
)

// Filter narrows ledger queries.
type Filter struct {
	BatchID   *id.ID
	ProductID *id.ID
	Reference string
	StockType *entity.PoolKind
	ScopeKey  *string
	From      *time.Time
	To        *time.Time

	Limit  int
	Offset int
}

// Repository defines persistence for ledger rows.
// Rows are append-only: there is no update or delete.
type Repository interface {
	// Append inserts rows atomically, in order.
	Append(ctx context.Context, entries []entity.LedgerEntry) error

	// Find retrieves rows matching the filter, oldest first.
	Find(ctx context.Context, f Filter) ([]entity.LedgerEntry, error)

	// FindByReference retrieves all rows of one operation.
	FindByReference(ctx context.Context, reference string) ([]entity.LedgerEntry, error)

	// Count returns the number of rows matching the filter.
	Count(ctx context.Context, f Filter) (int64, error)
}
