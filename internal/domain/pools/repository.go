// Package pools provides the stock pool store: current quantities of each
// batch per pool (main, location, personal), in base units, never negative.
package pools

import (
	"context"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Repository defines persistence for stock pools.
//
// Locking contract: LockForUpdate must be called inside a transaction and
// acquires the row with FOR UPDATE NOWAIT. Lock failure surfaces as
// apperror.CodeLockNotAvailable (retryable). Callers lock pools in the
// fixed global order (entity.PoolKey.Less) before applying deltas.
type Repository interface {
	// Get retrieves a pool by key without locking.
	// Missing pool is apperror.CodeNotFound.
	Get(ctx context.Context, key entity.PoolKey) (*entity.StockPool, error)

	// LockForUpdate acquires a row lock on the pool and returns it.
	// With createIfMissing, an empty ACTIVE pool is inserted first.
	// Without it, a missing pool is apperror.CodeNotFound.
	LockForUpdate(ctx context.Context, key entity.PoolKey, createIfMissing bool) (*entity.StockPool, error)

	// ApplyDelta adjusts a locked pool's quantity. A delta that would drive
	// the quantity negative is rejected with apperror.CodeInsufficientStock
	// and the pool is left unchanged. A debit that zeroes the pool marks it
	// FINISHED; a credit onto a FINISHED pool reactivates it.
	ApplyDelta(ctx context.Context, key entity.PoolKey, delta types.Quantity) (*entity.StockPool, error)

	// SetStatus annotates the pool lifecycle status.
	SetStatus(ctx context.Context, key entity.PoolKey, status entity.PoolStatus) error

	// ListByBatch retrieves all pools of a batch.
	ListByBatch(ctx context.Context, batchID id.ID) ([]*entity.StockPool, error)

	// ListByScope retrieves all pools of one kind and scope
	// (e.g. everything held by one staff member).
	ListByScope(ctx context.Context, kind entity.PoolKind, scopeKey string) ([]*entity.StockPool, error)

	// ListAll retrieves every pool (reconciliation and alerts).
	ListAll(ctx context.Context) ([]*entity.StockPool, error)
}
