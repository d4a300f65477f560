// Package stock_repo provides PostgreSQL implementations of the stock pool
// and ledger repositories. All writes run inside the caller's transaction.
package stock_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/pools"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const poolTable = "stock_pools"

var poolColumns = []string{"id", "batch_id", "kind", "scope_key", "quantity", "status", "updated_at"}

// PoolRepo implements pools.Repository.
type PoolRepo struct {
	txManager *postgres.TxManager
}

// Compile-time check.
var _ pools.Repository = (*PoolRepo)(nil)

// NewPoolRepo creates a new pool repository.
func NewPoolRepo(txManager *postgres.TxManager) *PoolRepo {
	return &PoolRepo{txManager: txManager}
}

func (r *PoolRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PoolRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(poolColumns...).
		From(poolTable)
}

func keyConditions(key entity.PoolKey) squirrel.Eq {
	return squirrel.Eq{
		"batch_id":  key.BatchID,
		"kind":      key.Kind,
		"scope_key": key.ScopeKey,
	}
}

func poolKeyString(key entity.PoolKey) string {
	return fmt.Sprintf("%s/%s/%s", key.BatchID, key.Kind, key.ScopeKey)
}

// Get retrieves a pool by key without locking.
func (r *PoolRepo) Get(ctx context.Context, key entity.PoolKey) (*entity.StockPool, error) {
	q := r.baseSelect().
		Where(keyConditions(key)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var pool entity.StockPool
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &pool, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock pool", poolKeyString(key))
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return &pool, nil
}

// LockForUpdate acquires the pool row with FOR UPDATE NOWAIT.
// Lock contention surfaces as apperror.CodeLockNotAvailable so the
// caller can retry the whole operation.
func (r *PoolRepo) LockForUpdate(ctx context.Context, key entity.PoolKey, createIfMissing bool) (*entity.StockPool, error) {
	querier := r.txManager.GetQuerier(ctx)

	if createIfMissing {
		fresh := entity.NewStockPool(key)
		insQ := r.builder().
			Insert(poolTable).
			Columns(poolColumns...).
			Values(fresh.ID, fresh.BatchID, fresh.Kind, fresh.ScopeKey, fresh.Quantity, fresh.Status, fresh.UpdatedAt).
			Suffix("ON CONFLICT (batch_id, kind, scope_key) DO NOTHING")

		sql, args, err := insQ.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return nil, fmt.Errorf("ensure pool: %w", err)
		}
	}

	q := r.baseSelect().
		Where(keyConditions(key)).
		Suffix("FOR UPDATE NOWAIT")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var pool entity.StockPool
	if err := pgxscan.Get(ctx, querier, &pool, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock pool", poolKeyString(key))
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return nil, apperror.NewLockNotAvailable("stock pool " + poolKeyString(key))
		}
		return nil, fmt.Errorf("lock pool: %w", err)
	}
	return &pool, nil
}

// ApplyDelta adjusts the quantity of a locked pool. The WHERE guard keeps
// the row untouched when the delta would drive the quantity negative; the
// CHECK constraint on the table is the second line of defense. A debit
// that zeroes the pool marks it FINISHED, a credit onto a FINISHED pool
// reactivates it.
func (r *PoolRepo) ApplyDelta(ctx context.Context, key entity.PoolKey, delta types.Quantity) (*entity.StockPool, error) {
	q := r.builder().
		Update(poolTable).
		Set("quantity", squirrel.Expr("quantity + ?", delta)).
		Set("status", squirrel.Expr(
			`CASE
				WHEN quantity + ? = 0 AND ? < 0 THEN 'FINISHED'
				WHEN status = 'FINISHED' AND ? > 0 THEN 'ACTIVE'
				ELSE status
			END`, delta, delta, delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(keyConditions(key)).
		Where(squirrel.Expr("quantity + ? >= 0", delta)).
		Suffix("RETURNING " + joinColumns(poolColumns))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var pool entity.StockPool
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &pool, sql, args...); err != nil {
		if !pgxscan.NotFound(err) {
			return nil, fmt.Errorf("apply delta: %w", err)
		}

		// Either the pool is missing or the delta would overdraw it.
		current, getErr := r.Get(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperror.NewInsufficientStock(
			key.BatchID.String(),
			delta.Neg().Float64(),
			current.Quantity.Float64(),
		)
	}
	return &pool, nil
}

// SetStatus annotates the pool lifecycle status.
func (r *PoolRepo) SetStatus(ctx context.Context, key entity.PoolKey, status entity.PoolStatus) error {
	q := r.builder().
		Update(poolTable).
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(keyConditions(key))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set pool status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock pool", poolKeyString(key))
	}
	return nil
}

// ListByBatch retrieves all pools of a batch.
func (r *PoolRepo) ListByBatch(ctx context.Context, batchID id.ID) ([]*entity.StockPool, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("kind", "scope_key")

	return r.selectMany(ctx, q)
}

// ListByScope retrieves all pools of one kind and scope.
func (r *PoolRepo) ListByScope(ctx context.Context, kind entity.PoolKind, scopeKey string) ([]*entity.StockPool, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"kind": kind, "scope_key": scopeKey}).
		OrderBy("batch_id")

	return r.selectMany(ctx, q)
}

// ListAll retrieves every pool.
func (r *PoolRepo) ListAll(ctx context.Context) ([]*entity.StockPool, error) {
	q := r.baseSelect().
		OrderBy("batch_id", "kind", "scope_key")

	return r.selectMany(ctx, q)
}

func (r *PoolRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]*entity.StockPool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*entity.StockPool
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return items, nil
}
