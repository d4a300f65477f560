package withdrawal

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

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[id.ID]*Request)}
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
		return nil, apperror.NewNotFound("withdrawal request", reqID.String())
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) Update(ctx context.Context, req *Request) error {
	if _, ok := r.items[req.ID]; !ok {
		return apperror.NewNotFound("withdrawal request", req.ID.String())
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
		return apperror.NewNotFound("withdrawal request", reqID.String())
	}
	req.DeletionMark = marked
	return nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) ([]*Request, int64, error) {
	var out []*Request
	for _, req := range r.items {
		if f.Status != nil && req.Status != *f.Status {
			continue
		}
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

// fakeTxManager snapshots repo, pools and ledger before fn and restores
// them on error, mimicking transactional rollback. Nested calls reuse the
// outer transaction, so only the outermost frame rolls back.
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

type recordingAudit struct {
	records []requests.TransitionRecord
}

func (a *recordingAudit) RecordTransition(ctx context.Context, rec requests.TransitionRecord) error {
	a.records = append(a.records, rec)
	return nil
}

// --- Test fixture ---

type fixture struct {
	service  *Service
	repo     *fakeRepo
	pools    *fakePoolRepo
	ledger   *fakeLedger
	audit    *recordingAudit
	batchID  id.ID
	baseUnit id.ID // factor 1
	pairUnit id.ID // factor 2
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	poolRepo := &fakePoolRepo{pools: make(map[entity.PoolKey]*entity.StockPool)}
	led := &fakeLedger{}
	txm := &fakeTxManager{repo: repo, pools: poolRepo, ledger: led}
	audit := &recordingAudit{}

	productID := id.New()
	b := batch.NewBatch(productID, "LOT-001")
	batches := &fakeBatches{items: map[id.ID]*batch.Batch{b.ID: b}}

	baseUnit := id.New()
	pairUnit := id.New()
	conv := &fakeConverter{factors: map[id.ID]decimal.Decimal{
		baseUnit: decimal.NewFromInt(1),
		pairUnit: decimal.NewFromInt(2),
	}}

	engine := movement.NewEngine(conv, batches, poolRepo, led, txm)

	return &fixture{
		service:  NewService(repo, engine, audit, txm, &numerator.MockGenerator{}),
		repo:     repo,
		pools:    poolRepo,
		ledger:   led,
		audit:    audit,
		batchID:  b.ID,
		baseUnit: baseUnit,
		pairUnit: pairUnit,
	}
}

// seedMain puts base units into the main pool directly.
func (f *fixture) seedMain(qty types.Quantity) {
	key := entity.PoolKey{BatchID: f.batchID, Kind: entity.PoolMain}
	p := entity.NewStockPool(key)
	p.Quantity = qty
	f.pools.pools[key] = &p
}

func (f *fixture) poolQty(kind entity.PoolKind, scope string) types.Quantity {
	key := entity.PoolKey{BatchID: f.batchID, Kind: kind, ScopeKey: scope}
	p, ok := f.pools.pools[key]
	if !ok {
		return 0
	}
	return p.Quantity
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func (f *fixture) createRequest(t *testing.T, kind MoveKind, scope string, unitID id.ID, amount types.Quantity) *Request {
	t.Helper()
	req := New("dr-ivanova", kind, scope)
	req.AddItem(f.batchID, unitID, amount, "")
	require.NoError(t, f.service.Create(context.Background(), req))
	return req
}

// --- Tests ---

func TestCreate_AssignsNumberAndStoresPending(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest(t, MainToLocation, "room-1", f.baseUnit, qty(10))

	stored, err := f.service.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, stored.Status)
	assert.NotEmpty(t, stored.Number)
	assert.Empty(t, f.ledger.entries, "creation must not move stock")
}

func TestCreate_RejectsEmptyItems(t *testing.T) {
	f := newFixture(t)

	req := New("dr-ivanova", MainToLocation, "room-1")
	err := f.service.Create(context.Background(), req)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// The worked example: main holds 100 base units, issuing 30 display units
// at factor 2 moves 60 base units to the location.
func TestSetStatus_IssueMovesStockAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	req := f.createRequest(t, MainToLocation, "room-1", f.pairUnit, qty(30))

	require.NoError(t, f.service.SetStatus(ctx, req.ID, entity.StatusIssued))

	assert.Equal(t, qty(40), f.poolQty(entity.PoolMain, ""))
	assert.Equal(t, qty(60), f.poolQty(entity.PoolLocation, "room-1"))

	require.Len(t, f.ledger.entries, 2)
	assert.Equal(t, f.ledger.entries[0].Reference, f.ledger.entries[1].Reference)
	assert.Equal(t, req.Items[0].LineID.String(), f.ledger.entries[0].Reference)
	assert.Equal(t, qty(60), f.ledger.entries[0].Quantity)
	assert.Equal(t, qty(30), f.ledger.entries[0].OriginalQuantity)

	stored, err := f.service.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusIssued, stored.Status)
	require.NotNil(t, stored.IssuedBy)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, entity.StatusPending, f.audit.records[0].FromStatus)
	assert.Equal(t, entity.StatusIssued, f.audit.records[0].ToStatus)
}

func TestSetStatus_InsufficientStockRollsBackStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	// 30 display units x2 succeed, then 50 display units x2 overdraw.
	first := f.createRequest(t, MainToLocation, "room-1", f.pairUnit, qty(30))
	require.NoError(t, f.service.SetStatus(ctx, first.ID, entity.StatusIssued))

	second := f.createRequest(t, MainToLocation, "room-1", f.pairUnit, qty(50))
	ledgerBefore := len(f.ledger.entries)

	err := f.service.SetStatus(ctx, second.ID, entity.StatusIssued)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Status write, stock effect and audit record all rolled back.
	stored, getErr := f.service.GetByID(ctx, second.ID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusPending, stored.Status)
	assert.Equal(t, qty(40), f.poolQty(entity.PoolMain, ""))
	assert.Equal(t, qty(60), f.poolQty(entity.PoolLocation, "room-1"))
	assert.Len(t, f.ledger.entries, ledgerBefore)
	assert.Len(t, f.audit.records, 1)
}

func TestSetStatus_LocationToMainReturnsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	out := f.createRequest(t, MainToLocation, "room-1", f.baseUnit, qty(30))
	require.NoError(t, f.service.SetStatus(ctx, out.ID, entity.StatusIssued))

	back := f.createRequest(t, LocationToMain, "room-1", f.baseUnit, qty(10))
	require.NoError(t, f.service.SetStatus(ctx, back.ID, entity.StatusIssued))

	assert.Equal(t, qty(80), f.poolQty(entity.PoolMain, ""))
	assert.Equal(t, qty(20), f.poolQty(entity.PoolLocation, "room-1"))
}

func TestSetStatus_CustodyRequiresApprovalBeforeIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	req := f.createRequest(t, Custody, "nurse-7", f.baseUnit, qty(10))

	err := f.service.SetStatus(ctx, req.ID, entity.StatusIssued)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)
	assert.Empty(t, f.ledger.entries)

	require.NoError(t, f.service.SetStatus(ctx, req.ID, entity.StatusApproved))
	assert.Equal(t, qty(100), f.poolQty(entity.PoolMain, ""), "approval alone must not move stock")

	require.NoError(t, f.service.SetStatus(ctx, req.ID, entity.StatusIssued))
	assert.Equal(t, qty(90), f.poolQty(entity.PoolMain, ""))
	assert.Equal(t, qty(10), f.poolQty(entity.PoolPersonal, "nurse-7"))
}

func TestSetStatus_TerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	rejected := f.createRequest(t, MainToLocation, "room-1", f.baseUnit, qty(5))
	require.NoError(t, f.service.SetStatus(ctx, rejected.ID, entity.StatusRejected))

	for _, to := range []entity.RequestStatus{entity.StatusPending, entity.StatusApproved, entity.StatusIssued} {
		err := f.service.SetStatus(ctx, rejected.ID, to)
		require.Error(t, err, "REJECTED -> %s", to)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)
	}

	issued := f.createRequest(t, MainToLocation, "room-1", f.baseUnit, qty(5))
	require.NoError(t, f.service.SetStatus(ctx, issued.ID, entity.StatusIssued))

	err := f.service.SetStatus(ctx, issued.ID, entity.StatusIssued)
	require.Error(t, err)
	assert.Len(t, f.ledger.entries, 2, "repeat issue must not double-move")
}

func TestUpdate_RejectedAfterPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	req := f.createRequest(t, MainToLocation, "room-1", f.baseUnit, qty(5))
	require.NoError(t, f.service.SetStatus(ctx, req.ID, entity.StatusIssued))

	stored, err := f.service.GetByID(ctx, req.ID)
	require.NoError(t, err)
	stored.Comment = "late edit"
	err = f.service.Update(ctx, stored)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRequestNotEditable, appErr.Code)

	err = f.service.Delete(ctx, req.ID)
	require.Error(t, err)
}

func TestSetStatus_RejectionSkipsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedMain(qty(100))

	req := f.createRequest(t, Custody, "nurse-7", f.baseUnit, qty(10))
	require.NoError(t, f.service.SetStatus(ctx, req.ID, entity.StatusApproved))
	require.NoError(t, f.service.SetStatus(ctx, req.ID, entity.StatusRejected))

	assert.Equal(t, qty(100), f.poolQty(entity.PoolMain, ""))
	assert.Empty(t, f.ledger.entries)
	assert.Len(t, f.audit.records, 2)
}
