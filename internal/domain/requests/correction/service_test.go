package correction

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/domain/movement"
	"clinicstock/internal/domain/requests"
)

// --- In-memory fakes ---

type fakeRepo struct {
	items map[id.ID]*Request
}

func (r *fakeRepo) snapshot() map[id.ID]Request {
	s := make(map[id.ID]Request, len(r.items))
	for k, v := range r.items {
		s[k] = *v
	}
	return s
}

func (r *fakeRepo) restore(s map[id.ID]Request) {
	r.items = make(map[id.ID]*Request, len(s))
	for k, v := range s {
		req := v
		r.items[k] = &req
	}
}

func (r *fakeRepo) Create(ctx context.Context, req *Request) error {
	cp := *req
	r.items[req.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, reqID id.ID) (*Request, error) {
	req, ok := r.items[reqID]
	if !ok {
		return nil, apperror.NewNotFound("correction request", reqID.String())
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) Update(ctx context.Context, req *Request) error {
	if _, ok := r.items[req.ID]; !ok {
		return apperror.NewNotFound("correction request", req.ID.String())
	}
	cp := *req
	r.items[req.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, req *Request) error {
	return r.Update(ctx, req)
}

func (r *fakeRepo) SetDeletionMark(ctx context.Context, reqID id.ID, marked bool) error {
	req, ok := r.items[reqID]
	if !ok {
		return apperror.NewNotFound("correction request", reqID.String())
	}
	req.DeletionMark = marked
	return nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) ([]*Request, int64, error) {
	var out []*Request
	for _, req := range r.items {
		cp := *req
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

type fakePoolRepo struct {
	pools map[entity.PoolKey]*entity.StockPool
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
	return nil, nil
}

func (r *fakePoolRepo) ListByScope(ctx context.Context, kind entity.PoolKind, scopeKey string) ([]*entity.StockPool, error) {
	return nil, nil
}

func (r *fakePoolRepo) ListAll(ctx context.Context) ([]*entity.StockPool, error) {
	return nil, nil
}

type fakeLedger struct {
	entries []entity.LedgerEntry
}

func (l *fakeLedger) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	l.entries = append(l.entries, entries...)
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

type fakeTxManager struct {
	repo   *fakeRepo
	pools  *fakePoolRepo
	ledger *fakeLedger
	depth  int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		m.depth++
		defer func() { m.depth-- }()
		return fn(ctx)
	}
	m.depth++
	defer func() { m.depth-- }()

	repoSnap := m.repo.snapshot()
	poolSnap := m.pools.snapshot()
	ledgerLen := len(m.ledger.entries)
	if err := fn(ctx); err != nil {
		m.repo.restore(repoSnap)
		m.pools.restore(poolSnap)
		m.ledger.entries = m.ledger.entries[:ledgerLen]
		return err
	}
	return nil
}

// --- Test fixture ---

type fixture struct {
	service  *Service
	pools    *fakePoolRepo
	ledger   *fakeLedger
	batchID  id.ID
	baseUnit id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &fakeRepo{items: make(map[id.ID]*Request)}
	poolRepo := &fakePoolRepo{pools: make(map[entity.PoolKey]*entity.StockPool)}
	led := &fakeLedger{}
	txm := &fakeTxManager{repo: repo, pools: poolRepo, ledger: led}

	productID := id.New()
	b := batch.NewBatch(productID, "LOT-001")
	batches := &fakeBatches{items: map[id.ID]*batch.Batch{b.ID: b}}

	baseUnit := id.New()
	conv := &fakeConverter{factors: map[id.ID]decimal.Decimal{
		baseUnit: decimal.NewFromInt(1),
	}}

	engine := movement.NewEngine(conv, batches, poolRepo, led, txm)

	return &fixture{
		service:  NewService(repo, engine, requests.NopAuditRecorder{}, txm, &numerator.MockGenerator{}),
		pools:    poolRepo,
		ledger:   led,
		batchID:  b.ID,
		baseUnit: baseUnit,
	}
}

func (f *fixture) seedMain(q types.Quantity) {
	key := entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolMain}
	p := entity.NewStockPool(key)
	p.Quantity = q
	f.pools.pools[key] = &p
}

func (f *fixture) mainPool() *entity.StockPool {
	return f.pools.pools[entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolMain}]
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

// --- Tests ---

func TestSetApproval_AppliesSignedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(50))

	damaged := entity.PoolStatusDamaged
	req := New("auditor", "annual inventory count")
	req.AddItem(Item{
		BatchID:       f.batchID,
		PoolKind:      entity.PoolMain,
		ProductUnitID: f.baseUnit,
		Quantity:      qty(-8),
		SetStatus:     &damaged,
	})
	require.NoError(t, f.service.Create(ctx, req))

	require.NoError(t, f.service.SetApproval(ctx, req.ID, entity.StatusApproved))

	p := f.mainPool()
	assert.Equal(t, qty(42), p.Quantity)
	assert.Equal(t, entity.PoolStatusDamaged, p.Status)

	require.Len(t, f.ledger.entries, 1)
	assert.Equal(t, entity.MovementOut, f.ledger.entries[0].Movement)
	assert.Equal(t, req.Items[0].LineID.String(), f.ledger.entries[0].Reference)
}

func TestSetApproval_PositiveLineCreatesPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := New("auditor", "found surplus in room 2")
	req.AddItem(Item{
		BatchID:       f.batchID,
		PoolKind:      entity.PoolLocation,
		ScopeKey:      "room-2",
		ProductUnitID: f.baseUnit,
		Quantity:      qty(3),
	})
	require.NoError(t, f.service.Create(ctx, req))
	require.NoError(t, f.service.SetApproval(ctx, req.ID, entity.StatusApproved))

	key := entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolLocation, ScopeKey: "room-2"}
	require.NotNil(t, f.pools.pools[key])
	assert.Equal(t, qty(3), f.pools.pools[key].Quantity)
}

func TestSetApproval_OverdrawRollsBackAllLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(10))

	// First line fits, second overdraws; nothing may stick.
	req := New("auditor", "write-off")
	req.AddItem(Item{
		BatchID: f.batchID, PoolKind: entity.PoolMain,
		ProductUnitID: f.baseUnit, Quantity: qty(-4),
	})
	req.AddItem(Item{
		BatchID: f.batchID, PoolKind: entity.PoolMain,
		ProductUnitID: f.baseUnit, Quantity: qty(-20),
	})
	require.NoError(t, f.service.Create(ctx, req))

	err := f.service.SetApproval(ctx, req.ID, entity.StatusApproved)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, qty(10), f.mainPool().Quantity)
	assert.Empty(t, f.ledger.entries)

	stored, getErr := f.service.GetByID(ctx, req.ID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusPending, stored.Status)
}

func TestSetApproval_RejectionSkipsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(10))

	req := New("auditor", "mistaken count")
	req.AddItem(Item{
		BatchID: f.batchID, PoolKind: entity.PoolMain,
		ProductUnitID: f.baseUnit, Quantity: qty(-4),
	})
	require.NoError(t, f.service.Create(ctx, req))
	require.NoError(t, f.service.SetApproval(ctx, req.ID, entity.StatusRejected))

	assert.Equal(t, qty(10), f.mainPool().Quantity)
	assert.Empty(t, f.ledger.entries)

	// Rejected is terminal.
	err := f.service.SetApproval(ctx, req.ID, entity.StatusApproved)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)
}

func TestValidate_RequiresReasonAndNonzeroLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := New("auditor", "")
	req.AddItem(Item{
		BatchID: f.batchID, PoolKind: entity.PoolMain,
		ProductUnitID: f.baseUnit, Quantity: qty(1),
	})
	require.Error(t, f.service.Create(ctx, req))

	req = New("auditor", "count")
	req.AddItem(Item{
		BatchID: f.batchID, PoolKind: entity.PoolMain,
		ProductUnitID: f.baseUnit, Quantity: qty(0),
	})
	require.Error(t, f.service.Create(ctx, req))

	req = New("auditor", "count")
	req.AddItem(Item{
		BatchID: f.batchID, PoolKind: entity.PoolLocation,
		ProductUnitID: f.baseUnit, Quantity: qty(1),
	})
	require.Error(t, f.service.Create(ctx, req), "location line without scope key")
}
