// Package movement provides the movement engine: the only writer of stock
// pools and ledger rows. Each operation converts the submitted quantity to
// base units exactly once, locks the affected pools in the fixed global
// order, debits before crediting, and appends the ledger rows in the same
// transaction. Any failure aborts the whole operation.
package movement

import (
	"context"
	"time"

	"clinicstock/internal/core/apperror"
	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/domain/pools"
	"clinicstock/pkg/logger"
)

// Converter resolves a product unit and converts a quantity to base units.
// Conversion is server-side and happens exactly once per operation.
type Converter interface {
	ToBase(ctx context.Context, productID, productUnitID id.ID, qty types.Quantity) (types.Quantity, error)
}

// BatchResolver loads batches (batch carries the owning product).
type BatchResolver interface {
	GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error)
}

// LedgerAppender appends validated ledger rows.
type LedgerAppender interface {
	Append(ctx context.Context, entries []entity.LedgerEntry) error
}

// PoolRef addresses a pool independent of batch.
type PoolRef struct {
	Kind     entity.PoolKind `json:"kind"`
	ScopeKey string          `json:"scopeKey"`
}

// MainPool is the central storage reference.
func MainPool() PoolRef {
	return PoolRef{Kind: entity.PoolMain}
}

// Key binds the reference to a batch.
func (r PoolRef) Key(batchID id.ID) entity.PoolKey {
	return entity.PoolKey{BatchID: batchID, Kind: r.Kind, ScopeKey: r.ScopeKey}
}

func (r PoolRef) validate() error {
	if !r.Kind.Valid() {
		return apperror.NewValidation("invalid pool kind").
			WithDetail("kind", string(r.Kind))
	}
	if r.Kind == entity.PoolMain && r.ScopeKey != "" {
		return apperror.NewValidation("main pool has no scope key")
	}
	if r.Kind != entity.PoolMain && r.ScopeKey == "" {
		return apperror.NewValidation("scope key is required").
			WithDetail("kind", string(r.Kind))
	}
	return nil
}

// StockInCommand books received goods into a pool.
type StockInCommand struct {
	BatchID       id.ID
	ProductUnitID id.ID
	// Quantity in the submitted unit, must be positive
	Quantity types.Quantity
	// Target defaults to the main pool
	Target    PoolRef
	Reference string
	Notes     string
}

// TransferCommand moves stock between two pools of one batch.
type TransferCommand struct {
	BatchID       id.ID
	ProductUnitID id.ID
	// Quantity in the submitted unit, must be positive
	Quantity  types.Quantity
	From      PoolRef
	To        PoolRef
	Reference string
	Notes     string
}

// CorrectionCommand adjusts one pool by a signed quantity.
type CorrectionCommand struct {
	BatchID       id.ID
	ProductUnitID id.ID
	// Quantity in the submitted unit, nonzero; sign picks the direction
	Quantity types.Quantity
	Pool     PoolRef
	// SetStatus optionally annotates the pool (damaged, lost, returned)
	SetStatus *entity.PoolStatus
	Reference string
	Notes     string
}

// Result reports what an operation wrote.
type Result struct {
	Reference string               `json:"reference"`
	Entries   []entity.LedgerEntry `json:"entries"`
}

// Engine executes stock movements.
type Engine struct {
	converter Converter
	batches   BatchResolver
	pools     pools.Repository
	ledger    LedgerAppender
	txManager tx.Manager
}

// NewEngine creates a movement engine.
func NewEngine(converter Converter, batches BatchResolver, poolRepo pools.Repository, ledger LedgerAppender, txManager tx.Manager) *Engine {
	return &Engine{
		converter: converter,
		batches:   batches,
		pools:     poolRepo,
		ledger:    ledger,
		txManager: txManager,
	}
}

// StockIn credits a pool and writes one IN row.
func (e *Engine) StockIn(ctx context.Context, cmd StockInCommand) (*Result, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", cmd.Quantity.String())
	}
	target := cmd.Target
	if target.Kind == "" {
		target = MainPool()
	}
	if err := target.validate(); err != nil {
		return nil, err
	}

	b, baseQty, err := e.resolve(ctx, cmd.BatchID, cmd.ProductUnitID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	reference := orNewReference(cmd.Reference)
	entry := entity.NewLedgerEntry(
		b.ProductID, b.ID, target.Kind, target.ScopeKey,
		entity.MovementIn, baseQty,
		cmd.ProductUnitID, cmd.Quantity,
		reference, appctx.GetActorID(ctx),
	)
	entry.Notes = cmd.Notes

	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.pools.LockForUpdate(ctx, target.Key(b.ID), true); err != nil {
			return err
		}
		if _, err := e.pools.ApplyDelta(ctx, target.Key(b.ID), baseQty); err != nil {
			return err
		}
		return e.ledger.Append(ctx, []entity.LedgerEntry{entry})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock in",
		"batch_id", b.ID.String(), "pool", string(target.Kind),
		"quantity", baseQty.String(), "reference", reference)

	return &Result{Reference: reference, Entries: []entity.LedgerEntry{entry}}, nil
}

// Transfer debits the source pool and credits the destination, writing two
// rows that share the reference and carry equal base quantities. The debit
// runs first; if the source cannot cover it the whole operation aborts and
// nothing is written.
func (e *Engine) Transfer(ctx context.Context, cmd TransferCommand) (*Result, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", cmd.Quantity.String())
	}
	if err := cmd.From.validate(); err != nil {
		return nil, err
	}
	if err := cmd.To.validate(); err != nil {
		return nil, err
	}
	if cmd.From == cmd.To {
		return nil, apperror.NewValidation("source and destination pools are the same")
	}

	b, baseQty, err := e.resolve(ctx, cmd.BatchID, cmd.ProductUnitID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	reference := orNewReference(cmd.Reference)
	actor := appctx.GetActorID(ctx)

	out := entity.NewLedgerEntry(
		b.ProductID, b.ID, cmd.From.Kind, cmd.From.ScopeKey,
		entity.MovementOut, baseQty,
		cmd.ProductUnitID, cmd.Quantity,
		reference, actor,
	)
	out.Notes = cmd.Notes
	in := entity.NewLedgerEntry(
		b.ProductID, b.ID, cmd.To.Kind, cmd.To.ScopeKey,
		entity.MovementIn, baseQty,
		cmd.ProductUnitID, cmd.Quantity,
		reference, actor,
	)
	in.Notes = cmd.Notes

	fromKey := cmd.From.Key(b.ID)
	toKey := cmd.To.Key(b.ID)

	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock both pools in the fixed global order, then debit first.
		if err := e.lockPair(ctx, fromKey, toKey, baseQty); err != nil {
			return err
		}
		if _, err := e.pools.ApplyDelta(ctx, fromKey, baseQty.Neg()); err != nil {
			return err
		}
		if _, err := e.pools.ApplyDelta(ctx, toKey, baseQty); err != nil {
			return err
		}
		return e.ledger.Append(ctx, []entity.LedgerEntry{out, in})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transfer",
		"batch_id", b.ID.String(),
		"from", string(cmd.From.Kind), "to", string(cmd.To.Kind),
		"quantity", baseQty.String(), "reference", reference)

	return &Result{Reference: reference, Entries: []entity.LedgerEntry{out, in}}, nil
}

// Correct adjusts one pool by a signed quantity and writes one row.
func (e *Engine) Correct(ctx context.Context, cmd CorrectionCommand) (*Result, error) {
	if cmd.Quantity.IsZero() {
		return nil, apperror.NewValidation("correction quantity must be nonzero")
	}
	if err := cmd.Pool.validate(); err != nil {
		return nil, err
	}
	if cmd.SetStatus != nil && !cmd.SetStatus.Valid() {
		return nil, apperror.NewValidation("invalid pool status").
			WithDetail("status", string(*cmd.SetStatus))
	}

	b, baseQty, err := e.resolve(ctx, cmd.BatchID, cmd.ProductUnitID, cmd.Quantity.Abs())
	if err != nil {
		return nil, err
	}

	movement := entity.MovementIn
	delta := baseQty
	if cmd.Quantity.IsNegative() {
		movement = entity.MovementOut
		delta = baseQty.Neg()
	}

	reference := orNewReference(cmd.Reference)
	entry := entity.NewLedgerEntry(
		b.ProductID, b.ID, cmd.Pool.Kind, cmd.Pool.ScopeKey,
		movement, baseQty,
		cmd.ProductUnitID, cmd.Quantity.Abs(),
		reference, appctx.GetActorID(ctx),
	)
	entry.Notes = cmd.Notes

	key := cmd.Pool.Key(b.ID)
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Only positive corrections may create the pool; a negative
		// correction on a missing pool is an overdraw.
		if _, err := e.pools.LockForUpdate(ctx, key, delta.IsPositive()); err != nil {
			return mapMissingPool(err, key, baseQty)
		}
		if _, err := e.pools.ApplyDelta(ctx, key, delta); err != nil {
			return err
		}
		if cmd.SetStatus != nil {
			if err := e.pools.SetStatus(ctx, key, *cmd.SetStatus); err != nil {
				return err
			}
		}
		return e.ledger.Append(ctx, []entity.LedgerEntry{entry})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock correction",
		"batch_id", b.ID.String(), "pool", string(cmd.Pool.Kind),
		"movement", string(movement), "quantity", baseQty.String(),
		"reference", reference)

	return &Result{Reference: reference, Entries: []entity.LedgerEntry{entry}}, nil
}

// resolve loads the batch and converts the quantity to base units.
// This is the single conversion point of every operation.
func (e *Engine) resolve(ctx context.Context, batchID, productUnitID id.ID, qty types.Quantity) (*batch.Batch, types.Quantity, error) {
	b, err := e.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, 0, err
	}
	if b.IsExpired(time.Now().UTC()) {
		logger.Warn(ctx, "movement on expired batch",
			"batch_id", b.ID.String(), "batch_number", b.BatchNumber)
	}
	baseQty, err := e.converter.ToBase(ctx, b.ProductID, productUnitID, qty)
	if err != nil {
		return nil, 0, err
	}
	if !baseQty.IsPositive() {
		return nil, 0, apperror.NewValidation("converted quantity must be positive").
			WithDetail("quantity", baseQty.String())
	}
	return b, baseQty, nil
}

// lockPair locks source and destination in the fixed global order.
// The source must exist; a missing source is an overdraw, not an error
// about pool bookkeeping.
func (e *Engine) lockPair(ctx context.Context, fromKey, toKey entity.PoolKey, requested types.Quantity) error {
	first, second := fromKey, toKey
	firstCreate, secondCreate := false, true
	if toKey.Less(fromKey) {
		first, second = toKey, fromKey
		firstCreate, secondCreate = true, false
	}

	if _, err := e.pools.LockForUpdate(ctx, first, firstCreate); err != nil {
		return mapMissingPool(err, fromKey, requested)
	}
	if _, err := e.pools.LockForUpdate(ctx, second, secondCreate); err != nil {
		return mapMissingPool(err, fromKey, requested)
	}
	return nil
}

// mapMissingPool turns a missing source pool into InsufficientStock:
// callers asked to move stock that was never there.
func mapMissingPool(err error, key entity.PoolKey, requested types.Quantity) error {
	if apperror.IsNotFound(err) {
		return apperror.NewInsufficientStock(key.BatchID.String(), requested.Float64(), 0).
			WithDetail("kind", string(key.Kind)).
			WithDetail("scope_key", key.ScopeKey)
	}
	return err
}

func orNewReference(ref string) string {
	if ref != "" {
		return ref
	}
	return id.New().String()
}
