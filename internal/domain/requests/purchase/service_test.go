package purchase

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

func (r *fakeRepo) Create(ctx context.Context, req *Request) error {
	cp := *req
	r.items[req.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, reqID id.ID) (*Request, error) {
	req, ok := r.items[reqID]
	if !ok {
		return nil, apperror.NewNotFound("purchase request", reqID.String())
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) Update(ctx context.Context, req *Request) error {
	if _, ok := r.items[req.ID]; !ok {
		return apperror.NewNotFound("purchase request", req.ID.String())
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
		return apperror.NewNotFound("purchase request", reqID.String())
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

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Test fixture ---

type fixture struct {
	service *Service
	pools   *fakePoolRepo
	ledger  *fakeLedger
	batchID id.ID
	boxUnit id.ID // factor 10
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &fakeRepo{items: make(map[id.ID]*Request)}
	poolRepo := &fakePoolRepo{pools: make(map[entity.PoolKey]*entity.StockPool)}
	led := &fakeLedger{}
	txm := fakeTxManager{}

	productID := id.New()
	b := batch.NewBatch(productID, "LOT-001")
	batches := &fakeBatches{items: map[id.ID]*batch.Batch{b.ID: b}}

	boxUnit := id.New()
	conv := &fakeConverter{factors: map[id.ID]decimal.Decimal{
		boxUnit: decimal.NewFromInt(10),
	}}

	engine := movement.NewEngine(conv, batches, poolRepo, led, txm)

	return &fixture{
		service: NewService(repo, engine, requests.NopAuditRecorder{}, txm, &numerator.MockGenerator{}),
		pools:   poolRepo,
		ledger:  led,
		batchID: b.ID,
		boxUnit: boxUnit,
	}
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

// --- Tests ---

func TestSetApproval_ApprovalBooksStockIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := New("pharmacist")
	req.SupplierName = "MedSupply GmbH"
	req.AddItem(f.batchID, f.boxUnit, qty(5), "")
	require.NoError(t, f.service.Create(ctx, req))
	assert.NotEmpty(t, req.Number)

	require.NoError(t, f.service.SetApproval(ctx, req.ID, entity.StatusApproved))

	// 5 boxes at factor 10 credit 50 base units to main.
	key := entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolMain}
	require.NotNil(t, f.pools.pools[key])
	assert.Equal(t, qty(50), f.pools.pools[key].Quantity)

	require.Len(t, f.ledger.entries, 1)
	assert.Equal(t, entity.MovementIn, f.ledger.entries[0].Movement)
	assert.Equal(t, qty(50), f.ledger.entries[0].Quantity)
	assert.Equal(t, qty(5), f.ledger.entries[0].OriginalQuantity)
	assert.Equal(t, req.Items[0].LineID.String(), f.ledger.entries[0].Reference)

	stored, err := f.service.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, stored.Status)
	require.NotNil(t, stored.DecidedBy)
}

func TestSetApproval_RejectionSkipsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := New("pharmacist")
	req.AddItem(f.batchID, f.boxUnit, qty(5), "")
	require.NoError(t, f.service.Create(ctx, req))
	require.NoError(t, f.service.SetApproval(ctx, req.ID, entity.StatusRejected))

	assert.Empty(t, f.ledger.entries)
	assert.Empty(t, f.pools.pools)

	// Terminal: a later approval attempt must fail.
	err := f.service.SetApproval(ctx, req.ID, entity.StatusApproved)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)
}

func TestUpdate_OnlyPendingIsEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := New("pharmacist")
	req.AddItem(f.batchID, f.boxUnit, qty(1), "")
	require.NoError(t, f.service.Create(ctx, req))
	require.NoError(t, f.service.SetApproval(ctx, req.ID, entity.StatusApproved))

	stored, err := f.service.GetByID(ctx, req.ID)
	require.NoError(t, err)
	stored.Comment = "late edit"
	err = f.service.Update(ctx, stored)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRequestNotEditable, appErr.Code)

	require.Error(t, f.service.Delete(ctx, req.ID))
}

func TestSetApproval_InvalidTargetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := New("pharmacist")
	req.AddItem(f.batchID, f.boxUnit, qty(1), "")
	require.NoError(t, f.service.Create(ctx, req))

	// Purchases never reach ISSUED.
	err := f.service.SetApproval(ctx, req.ID, entity.StatusIssued)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)
}
