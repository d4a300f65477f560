// Package entity provides core domain entities.
package entity

import (
	"time"

	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// MovementType defines ledger row direction.
type MovementType string

const (
	// MovementIn increases a pool
	MovementIn MovementType = "IN"
	// MovementOut decreases a pool
	MovementOut MovementType = "OUT"
)

// PoolKind identifies which kind of stock pool a quantity lives in.
type PoolKind string

const (
	// PoolMain is central storage. ScopeKey is empty.
	PoolMain PoolKind = "MAIN"
	// PoolLocation is stock held at a treatment room or cabinet.
	// ScopeKey is the location ID.
	PoolLocation PoolKind = "LOCATION"
	// PoolPersonal is custody stock issued to a staff member.
	// ScopeKey is the staff member ID.
	PoolPersonal PoolKind = "PERSONAL"
)

// Valid reports whether k is a known pool kind.
func (k PoolKind) Valid() bool {
	switch k {
	case PoolMain, PoolLocation, PoolPersonal:
		return true
	}
	return false
}

// LockRank gives pool kinds a fixed global ordering for lock acquisition.
// Every multi-pool operation locks in ascending (rank, scopeKey, batchID)
// order to avoid deadlocks.
func (k PoolKind) LockRank() int {
	switch k {
	case PoolMain:
		return 0
	case PoolLocation:
		return 1
	case PoolPersonal:
		return 2
	default:
		return 3
	}
}

// PoolStatus is a lifecycle annotation on a stock pool.
// It never affects arithmetic: quantity stays authoritative.
type PoolStatus string

const (
	PoolStatusActive   PoolStatus = "ACTIVE"
	PoolStatusReserved PoolStatus = "RESERVED"
	PoolStatusFinished PoolStatus = "FINISHED"
	PoolStatusDamaged  PoolStatus = "DAMAGED"
	PoolStatusLost     PoolStatus = "LOST"
	PoolStatusReturned PoolStatus = "RETURNED"
)

// Valid reports whether s is a known pool status.
func (s PoolStatus) Valid() bool {
	switch s {
	case PoolStatusActive, PoolStatusReserved, PoolStatusFinished,
		PoolStatusDamaged, PoolStatusLost, PoolStatusReturned:
		return true
	}
	return false
}

// PoolKey is the logical identity of a stock pool.
// At most one pool exists per key.
type PoolKey struct {
	BatchID  id.ID    `json:"batchId"`
	Kind     PoolKind `json:"kind"`
	ScopeKey string   `json:"scopeKey"`
}

// Less orders pool keys by the fixed global lock order.
func (k PoolKey) Less(other PoolKey) bool {
	if k.Kind.LockRank() != other.Kind.LockRank() {
		return k.Kind.LockRank() < other.Kind.LockRank()
	}
	if k.ScopeKey != other.ScopeKey {
		return k.ScopeKey < other.ScopeKey
	}
	return k.BatchID.String() < other.BatchID.String()
}

// StockPool is the current quantity of one batch in one pool.
// Quantity is in base units and never negative.
type StockPool struct {
	ID       id.ID          `db:"id" json:"id"`
	BatchID  id.ID          `db:"batch_id" json:"batchId"`
	Kind     PoolKind       `db:"kind" json:"kind"`
	ScopeKey string         `db:"scope_key" json:"scopeKey"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Status   PoolStatus     `db:"status" json:"status"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStockPool creates an empty ACTIVE pool for the given key.
func NewStockPool(key PoolKey) StockPool {
	return StockPool{
		ID:        id.New(),
		BatchID:   key.BatchID,
		Kind:      key.Kind,
		ScopeKey:  key.ScopeKey,
		Status:    PoolStatusActive,
		UpdatedAt: time.Now().UTC(),
	}
}

// Key returns the logical identity of the pool.
func (p *StockPool) Key() PoolKey {
	return PoolKey{BatchID: p.BatchID, Kind: p.Kind, ScopeKey: p.ScopeKey}
}

// LedgerEntry is one immutable row of the stock ledger.
// Rows are append-only: they are never updated or deleted.
type LedgerEntry struct {
	// LineID is the unique identifier of this row (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// Dimensions
	ProductID id.ID        `db:"product_id" json:"productId"`
	BatchID   id.ID        `db:"batch_id" json:"batchId"`
	StockType PoolKind     `db:"stock_type" json:"stockType"`
	ScopeKey  string       `db:"scope_key" json:"scopeKey"`
	Movement  MovementType `db:"movement_type" json:"movementType"`

	// Quantity is in base units, always positive; direction comes from Movement
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Audit pair: the unit the caller submitted and the quantity in that unit.
	// Conversion to base happens exactly once, before the row is written.
	ProductUnitID    id.ID          `db:"product_unit_id" json:"productUnitId"`
	OriginalQuantity types.Quantity `db:"original_quantity" json:"originalQuantity"`

	// Reference correlates rows of one operation (both rows of a transfer
	// share it) and links back to the originating request line
	Reference string `db:"reference" json:"reference"`

	// ActorID is who triggered the movement
	ActorID string `db:"actor_id" json:"actorId"`

	Notes string `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLedgerEntry creates a ledger row with generated LineID and timestamp.
func NewLedgerEntry(
	productID, batchID id.ID,
	stockType PoolKind,
	scopeKey string,
	movement MovementType,
	quantity types.Quantity,
	productUnitID id.ID,
	originalQuantity types.Quantity,
	reference, actorID string,
) LedgerEntry {
	return LedgerEntry{
		LineID:           id.New(),
		ProductID:        productID,
		BatchID:          batchID,
		StockType:        stockType,
		ScopeKey:         scopeKey,
		Movement:         movement,
		Quantity:         quantity,
		ProductUnitID:    productUnitID,
		OriginalQuantity: originalQuantity,
		Reference:        reference,
		ActorID:          actorID,
		CreatedAt:        time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on movement type.
// IN = positive, OUT = negative. Summing signed quantities over a pool's
// rows reproduces the pool balance.
func (e *LedgerEntry) SignedQuantity() types.Quantity {
	if e.Movement == MovementOut {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// PoolKey returns the pool this row applies to.
func (e *LedgerEntry) PoolKey() PoolKey {
	return PoolKey{BatchID: e.BatchID, Kind: e.StockType, ScopeKey: e.ScopeKey}
}
