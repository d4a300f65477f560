package movement

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/catalogs/batch"
)

// --- In-memory fakes ---

type fakePoolRepo struct {
	pools map[entity.PoolKey]*entity.StockPool
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{pools: make(map[entity.PoolKey]*entity.StockPool)}
}

func (r *fakePoolRepo) snapshot() map[entity.PoolKey]entity.StockPool {
	s := make(map[entity.PoolKey]entity.StockPool, len(r.pools))
	for k, v := range r.pools {
		s[k] = *v
	}
	return s
}

func (r *fakePoolRepo) restore(s map[entity.PoolKey]entity.StockPool) {
	r.pools = make(map[entity.PoolKey]*entity.StockPool, len(s))
	for k, v := range s {
		p := v
		r.pools[k] = &p
	}
}

func (r *fakePoolRepo) Get(ctx context.Context, key entity.PoolKey) (*entity.StockPool, error) {
	p, ok := r.pools[key]
	if !ok {
		return nil, apperror.NewNotFound("stock pool", key)
	}
	cp := *p
	return &cp, nil
}

func (r *fakePoolRepo) LockForUpdate(ctx context.Context, key entity.PoolKey, createIfMissing bool) (*entity.StockPool, error) {
	p, ok := r.pools[key]
	if !ok {
		if !createIfMissing {
			return nil, apperror.NewNotFound("stock pool", key)
		}
		np := entity.NewStockPool(key)
		r.pools[key] = &np
		p = &np
	}
	cp := *p
	return &cp, nil
}

func (r *fakePoolRepo) ApplyDelta(ctx context.Context, key entity.PoolKey, delta types.Quantity) (*entity.StockPool, error) {
	p, ok := r.pools[key]
	if !ok {
		return nil, apperror.NewNotFound("stock pool", key)
	}
	next := p.Quantity + delta
	if next.IsNegative() {
		return nil, apperror.NewInsufficientStock(key.BatchID.String(), delta.Neg().Float64(), p.Quantity.Float64())
	}
	p.Quantity = next
	if next.IsZero() && delta.IsNegative() {
		p.Status = entity.PoolStatusFinished
	} else if next.IsPositive() && p.Status == entity.PoolStatusFinished {
		p.Status = entity.PoolStatusActive
	}
	cp := *p
	return &cp, nil
}

func (r *fakePoolRepo) SetStatus(ctx context.Context, key entity.PoolKey, status entity.PoolStatus) error {
	p, ok := r.pools[key]
	if !ok {
		return apperror.NewNotFound("stock pool", key)
	}
	p.Status = status
	return nil
}

func (r *fakePoolRepo) ListByBatch(ctx context.Context, batchID id.ID) ([]*entity.StockPool, error) {
	var out []*entity.StockPool
	for _, p := range r.pools {
		if p.BatchID == batchID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePoolRepo) ListByScope(ctx context.Context, kind entity.PoolKind, scopeKey string) ([]*entity.StockPool, error) {
	var out []*entity.StockPool
	for _, p := range r.pools {
		if p.Kind == kind && p.ScopeKey == scopeKey {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePoolRepo) ListAll(ctx context.Context) ([]*entity.StockPool, error) {
	var out []*entity.StockPool
	for _, p := range r.pools {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type fakeLedger struct {
	entries []entity.LedgerEntry
}

func (l *fakeLedger) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	l.entries = append(l.entries, entries...)
	return nil
}

func (l *fakeLedger) byReference(ref string) []entity.LedgerEntry {
	var out []entity.LedgerEntry
	for _, e := range l.entries {
		if e.Reference == ref {
			out = append(out, e)
		}
	}
	return out
}

// fakeTxManager snapshots the fakes before fn and restores them on error,
// mimicking transactional rollback.
type fakeTxManager struct {
	pools  *fakePoolRepo
	ledger *fakeLedger
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	poolSnap := m.pools.snapshot()
	ledgerLen := len(m.ledger.entries)
	if err := fn(ctx); err != nil {
		m.pools.restore(poolSnap)
		m.ledger.entries = m.ledger.entries[:ledgerLen]
		return err
	}
	return nil
}

type fakeBatches struct {
	items map[id.ID]*batch.Batch
}

func (b *fakeBatches) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	item, ok := b.items[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	return item, nil
}

type fakeConverter struct {
	factors map[id.ID]decimal.Decimal
}

func (c *fakeConverter) ToBase(ctx context.Context, productID, productUnitID id.ID, qty types.Quantity) (types.Quantity, error) {
	factor, ok := c.factors[productUnitID]
	if !ok {
		return 0, apperror.NewNotFound("product unit", productUnitID.String())
	}
	base, err := qty.MulExact(factor)
	if err != nil {
		return 0, apperror.NewValidation("conversion result is not exact").WithCause(err)
	}
	return base, nil
}

// --- Test fixture ---

type fixture struct {
	engine   *Engine
	pools    *fakePoolRepo
	ledger   *fakeLedger
	batchID  id.ID
	baseUnit id.ID // factor 1
	pairUnit id.ID // factor 2
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	poolRepo := newFakePoolRepo()
	led := &fakeLedger{}
	txm := &fakeTxManager{pools: poolRepo, ledger: led}

	productID := id.New()
	b := batch.NewBatch(productID, "LOT-001")
	batches := &fakeBatches{items: map[id.ID]*batch.Batch{b.ID: b}}

	baseUnit := id.New()
	pairUnit := id.New()
	conv := &fakeConverter{factors: map[id.ID]decimal.Decimal{
		baseUnit: decimal.NewFromInt(1),
		pairUnit: decimal.NewFromInt(2),
	}}

	return &fixture{
		engine:   NewEngine(conv, batches, poolRepo, led, txm),
		pools:    poolRepo,
		ledger:   led,
		batchID:  b.ID,
		baseUnit: baseUnit,
		pairUnit: pairUnit,
	}
}

func (f *fixture) mainQty(t *testing.T) types.Quantity {
	t.Helper()
	key := MainPool().Key(f.batchID)
	p, ok := f.pools.pools[key]
	if !ok {
		return 0
	}
	return p.Quantity
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

// --- Tests ---

func TestStockIn_CreditsMainAndWritesOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID:       f.batchID,
		ProductUnitID: f.baseUnit,
		Quantity:      qty(100),
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	assert.Equal(t, qty(100), f.mainQty(t))
	assert.Equal(t, entity.MovementIn, res.Entries[0].Movement)
	assert.Equal(t, qty(100), res.Entries[0].Quantity)
	assert.Equal(t, qty(100), res.Entries[0].OriginalQuantity)
	assert.NotEmpty(t, res.Reference)
}

func TestStockIn_ConvertsOnceAndKeepsAuditPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 5 pairs at factor 2 = 10 base units
	res, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID:       f.batchID,
		ProductUnitID: f.pairUnit,
		Quantity:      qty(5),
	})
	require.NoError(t, err)

	assert.Equal(t, qty(10), f.mainQty(t))
	assert.Equal(t, qty(10), res.Entries[0].Quantity)
	assert.Equal(t, qty(5), res.Entries[0].OriginalQuantity)
	assert.Equal(t, f.pairUnit, res.Entries[0].ProductUnitID)
}

func TestStockIn_RejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID:       f.batchID,
		ProductUnitID: f.baseUnit,
		Quantity:      qty(-1),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// The worked example: 100 base units in main, a location withdrawal of
// 30 display units at factor 2 moves 60 base units.
func TestTransfer_MainToLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(100),
	})
	require.NoError(t, err)

	res, err := f.engine.Transfer(ctx, TransferCommand{
		BatchID:       f.batchID,
		ProductUnitID: f.pairUnit,
		Quantity:      qty(30),
		From:          MainPool(),
		To:            PoolRef{Kind: entity.PoolLocation, ScopeKey: "room-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, qty(40), f.mainQty(t))

	locKey := entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolLocation, ScopeKey: "room-1"}
	assert.Equal(t, qty(60), f.pools.pools[locKey].Quantity)

	rows := f.ledger.byReference(res.Reference)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.MovementOut, rows[0].Movement)
	assert.Equal(t, entity.PoolMain, rows[0].StockType)
	assert.Equal(t, entity.MovementIn, rows[1].Movement)
	assert.Equal(t, entity.PoolLocation, rows[1].StockType)
	assert.Equal(t, rows[0].Quantity, rows[1].Quantity)
	assert.Equal(t, qty(60), rows[0].Quantity)
}

func TestTransfer_InsufficientStockAbortsWholeOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(100),
	})
	require.NoError(t, err)

	// First withdrawal succeeds, leaving 40 base units.
	_, err = f.engine.Transfer(ctx, TransferCommand{
		BatchID: f.batchID, ProductUnitID: f.pairUnit, Quantity: qty(30),
		From: MainPool(),
		To:   PoolRef{Kind: entity.PoolLocation, ScopeKey: "room-1"},
	})
	require.NoError(t, err)

	ledgerBefore := len(f.ledger.entries)

	// A second withdrawal of 50 display units (100 base) must fail whole.
	_, err = f.engine.Transfer(ctx, TransferCommand{
		BatchID: f.batchID, ProductUnitID: f.pairUnit, Quantity: qty(50),
		From: MainPool(),
		To:   PoolRef{Kind: entity.PoolLocation, ScopeKey: "room-1"},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Nothing changed: no partial debit, no ledger rows.
	assert.Equal(t, qty(40), f.mainQty(t))
	locKey := entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolLocation, ScopeKey: "room-1"}
	assert.Equal(t, qty(60), f.pools.pools[locKey].Quantity)
	assert.Len(t, f.ledger.entries, ledgerBefore)
}

func TestTransfer_MissingSourcePoolIsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Transfer(ctx, TransferCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(1),
		From: PoolRef{Kind: entity.PoolLocation, ScopeKey: "room-9"},
		To:   MainPool(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, f.ledger.entries)
}

func TestTransfer_SamePoolRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Transfer(ctx, TransferCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(1),
		From: MainPool(), To: MainPool(),
	})
	require.Error(t, err)
}

// Conservation: signed ledger sum per pool equals pool quantity, and
// transfers keep the batch total constant.
func TestConservation_SignedLedgerSumMatchesPools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(100),
	})
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, TransferCommand{
		BatchID: f.batchID, ProductUnitID: f.pairUnit, Quantity: qty(10),
		From: MainPool(),
		To:   PoolRef{Kind: entity.PoolLocation, ScopeKey: "room-1"},
	})
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, TransferCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(5),
		From: PoolRef{Kind: entity.PoolLocation, ScopeKey: "room-1"},
		To:   PoolRef{Kind: entity.PoolPersonal, ScopeKey: "nurse-7"},
	})
	require.NoError(t, err)

	sums := make(map[entity.PoolKey]types.Quantity)
	for _, e := range f.ledger.entries {
		sums[e.PoolKey()] += e.SignedQuantity()
	}

	var total types.Quantity
	for key, p := range f.pools.pools {
		assert.Equal(t, p.Quantity, sums[key], "pool %v", key)
		total += p.Quantity
	}
	assert.Equal(t, qty(100), total)
}

func TestCorrect_PositiveCreatesPoolNegativeDrains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Correct(ctx, CorrectionCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit,
		Quantity: qty(20), Pool: MainPool(),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementIn, res.Entries[0].Movement)
	assert.Equal(t, qty(20), f.mainQty(t))

	res, err = f.engine.Correct(ctx, CorrectionCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit,
		Quantity: qty(-20), Pool: MainPool(),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementOut, res.Entries[0].Movement)
	assert.Equal(t, qty(0), f.mainQty(t))

	// Debit that zeroed the pool marks it finished.
	key := MainPool().Key(f.batchID)
	assert.Equal(t, entity.PoolStatusFinished, f.pools.pools[key].Status)
}

func TestCorrect_NegativeOnMissingPoolIsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Correct(ctx, CorrectionCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit,
		Quantity: qty(-5), Pool: MainPool(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestCorrect_ZeroQuantityRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Correct(ctx, CorrectionCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit,
		Quantity: qty(0), Pool: MainPool(),
	})
	require.Error(t, err)
}

func TestCorrect_SetsPoolStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit, Quantity: qty(10),
	})
	require.NoError(t, err)

	damaged := entity.PoolStatusDamaged
	_, err = f.engine.Correct(ctx, CorrectionCommand{
		BatchID: f.batchID, ProductUnitID: f.baseUnit,
		Quantity: qty(-4), Pool: MainPool(),
		SetStatus: &damaged,
	})
	require.NoError(t, err)

	key := MainPool().Key(f.batchID)
	assert.Equal(t, qty(6), f.pools.pools[key].Quantity)
	assert.Equal(t, entity.PoolStatusDamaged, f.pools.pools[key].Status)
}

// Seeded random sequences of the three operations. Overdraws, same-pool
// transfers and negative corrections on missing pools are expected to
// fail; after every step no pool may be negative and the signed ledger
// sum of every pool must equal its quantity.
func TestEngine_RandomSequenceKeepsStockInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	refs := []PoolRef{
		MainPool(),
		{Kind: entity.PoolLocation, ScopeKey: "room-1"},
		{Kind: entity.PoolLocation, ScopeKey: "room-2"},
		{Kind: entity.PoolPersonal, ScopeKey: "nurse-7"},
	}
	units := []id.ID{f.baseUnit, f.pairUnit}

	for step := 0; step < 500; step++ {
		unit := units[rng.Intn(len(units))]
		amount := qty(float64(rng.Intn(20) + 1))

		var err error
		switch rng.Intn(3) {
		case 0:
			_, err = f.engine.StockIn(ctx, StockInCommand{
				BatchID: f.batchID, ProductUnitID: unit,
				Quantity: amount, Target: refs[rng.Intn(len(refs))],
			})
		case 1:
			_, err = f.engine.Transfer(ctx, TransferCommand{
				BatchID: f.batchID, ProductUnitID: unit, Quantity: amount,
				From: refs[rng.Intn(len(refs))],
				To:   refs[rng.Intn(len(refs))],
			})
		case 2:
			signed := amount
			if rng.Intn(2) == 0 {
				signed = amount.Neg()
			}
			_, err = f.engine.Correct(ctx, CorrectionCommand{
				BatchID: f.batchID, ProductUnitID: unit,
				Quantity: signed, Pool: refs[rng.Intn(len(refs))],
			})
		}
		if err != nil {
			_, ok := apperror.AsAppError(err)
			require.True(t, ok, "step %d: unexpected error %v", step, err)
		}

		assertStockInvariants(t, f, step)
	}

	assert.NotEmpty(t, f.ledger.entries)
}

func assertStockInvariants(t *testing.T, f *fixture, step int) {
	t.Helper()

	sums := make(map[entity.PoolKey]types.Quantity)
	for _, e := range f.ledger.entries {
		sums[e.PoolKey()] += e.SignedQuantity()
	}

	for key, p := range f.pools.pools {
		require.False(t, p.Quantity.IsNegative(),
			"step %d: pool %v went negative: %s", step, key, p.Quantity)
		require.Equal(t, p.Quantity, sums[key],
			"step %d: ledger sum mismatch for pool %v", step, key)
		delete(sums, key)
	}
	for key, s := range sums {
		require.True(t, s.IsZero(),
			"step %d: ledger rows for unknown pool %v sum to %s", step, key, s)
	}
}

func TestStockIn_InexactConversionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	third := id.New()
	f.engine.converter.(*fakeConverter).factors[third] = decimal.RequireFromString("0.3333333333")

	_, err := f.engine.StockIn(ctx, StockInCommand{
		BatchID: f.batchID, ProductUnitID: third, Quantity: qty(1),
	})
	require.Error(t, err)
	assert.Empty(t, f.ledger.entries)
	assert.Nil(t, f.pools.pools[MainPool().Key(f.batchID)])
}
