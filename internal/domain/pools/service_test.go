package pools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

type fakePoolRepo struct {
	pools      []*entity.StockPool
	setKey     entity.PoolKey
	setStatus  entity.PoolStatus
	statusSets int
}

func (r *fakePoolRepo) Get(_ context.Context, key entity.PoolKey) (*entity.StockPool, error) {
	for _, p := range r.pools {
		if p.Key() == key {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("stock pool", key.BatchID.String())
}

func (r *fakePoolRepo) LockForUpdate(ctx context.Context, key entity.PoolKey, _ bool) (*entity.StockPool, error) {
	return r.Get(ctx, key)
}

func (r *fakePoolRepo) ApplyDelta(_ context.Context, _ entity.PoolKey, _ types.Quantity) (*entity.StockPool, error) {
	panic("not used in read tests")
}

func (r *fakePoolRepo) SetStatus(_ context.Context, key entity.PoolKey, status entity.PoolStatus) error {
	r.setKey = key
	r.setStatus = status
	r.statusSets++
	return nil
}

func (r *fakePoolRepo) ListByBatch(_ context.Context, batchID id.ID) ([]*entity.StockPool, error) {
	var out []*entity.StockPool
	for _, p := range r.pools {
		if p.BatchID == batchID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePoolRepo) ListByScope(_ context.Context, kind entity.PoolKind, scopeKey string) ([]*entity.StockPool, error) {
	var out []*entity.StockPool
	for _, p := range r.pools {
		if p.Kind == kind && p.ScopeKey == scopeKey {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePoolRepo) ListAll(_ context.Context) ([]*entity.StockPool, error) {
	return r.pools, nil
}

func pool(batchID id.ID, kind entity.PoolKind, scopeKey string, qty float64) *entity.StockPool {
	p := entity.NewStockPool(entity.PoolKey{BatchID: batchID, Kind: kind, ScopeKey: scopeKey})
	p.Quantity = types.NewQuantityFromFloat64(qty)
	return &p
}

func TestGetSnapshot_DistributesAcrossPools(t *testing.T) {
	batchID := id.New()
	repo := &fakePoolRepo{pools: []*entity.StockPool{
		pool(batchID, entity.PoolMain, "", 100),
		pool(batchID, entity.PoolLocation, "room-2", 15),
		pool(batchID, entity.PoolLocation, "room-1", 5),
		pool(batchID, entity.PoolPersonal, "staff-9", 3),
		pool(id.New(), entity.PoolMain, "", 999),
	}}
	svc := NewService(repo)

	snap, err := svc.GetSnapshot(context.Background(), batchID)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromFloat64(100), snap.Main)
	assert.Equal(t, types.NewQuantityFromFloat64(123), snap.Total)

	require.Len(t, snap.Locations, 2)
	assert.Equal(t, "room-1", snap.Locations[0].ScopeKey, "locations sorted by scope key")
	assert.Equal(t, "room-2", snap.Locations[1].ScopeKey)

	require.Len(t, snap.Personal, 1)
	assert.Equal(t, "staff-9", snap.Personal[0].ScopeKey)
}

func TestGetSnapshot_EmptyBatch(t *testing.T) {
	svc := NewService(&fakePoolRepo{})

	snap, err := svc.GetSnapshot(context.Background(), id.New())
	require.NoError(t, err)
	assert.True(t, snap.Total.IsZero())
	assert.Empty(t, snap.Locations)
	assert.Empty(t, snap.Personal)
}

func TestTotalOnHand(t *testing.T) {
	batchID := id.New()
	repo := &fakePoolRepo{pools: []*entity.StockPool{
		pool(batchID, entity.PoolMain, "", 10),
		pool(batchID, entity.PoolPersonal, "staff-1", 2.5),
	}}
	svc := NewService(repo)

	total, err := svc.TotalOnHand(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(12.5), total)
}

func TestListByScope_RejectsUnknownKind(t *testing.T) {
	svc := NewService(&fakePoolRepo{})

	_, err := svc.ListByScope(context.Background(), "ATTIC", "room-1")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestSetStatus(t *testing.T) {
	repo := &fakePoolRepo{}
	svc := NewService(repo)
	key := entity.PoolKey{BatchID: id.New(), Kind: entity.PoolLocation, ScopeKey: "room-1"}

	require.NoError(t, svc.SetStatus(context.Background(), key, entity.PoolStatusDamaged))
	assert.Equal(t, 1, repo.statusSets)
	assert.Equal(t, key, repo.setKey)
	assert.Equal(t, entity.PoolStatusDamaged, repo.setStatus)

	err := svc.SetStatus(context.Background(), key, "SHREDDED")
	require.Error(t, err)
	assert.Equal(t, 1, repo.statusSets, "invalid status must not reach the repository")
}
